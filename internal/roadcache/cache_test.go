package roadcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func graphWithNode(id int64) *domain.RoadGraph {
	g := domain.NewRoadGraph()
	g.AddNode(&domain.Node{ID: id})
	return g
}

func TestNewKey_RoundsCoordinates(t *testing.T) {
	a := NewKey(17.38504, 78.48669, 10000)
	b := NewKey(17.38501, 78.48672, 10000.4)

	assert.Equal(t, a, b, "coordinates within ~11m share a key")
	assert.NotEqual(t, a, NewKey(17.38504, 78.48669, 5000))
}

func TestCache_GetPut(t *testing.T) {
	c := New(10)
	key := NewKey(17.385, 78.4867, 10000)

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, graphWithNode(1))

	g, ok := c.Get(key)
	require.True(t, ok)
	assert.Contains(t, g.Nodes, int64(1))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k1 := NewKey(1, 1, 1000)
	k2 := NewKey(2, 2, 1000)
	k3 := NewKey(3, 3, 1000)

	c.Put(k1, graphWithNode(1))
	c.Put(k2, graphWithNode(2))

	// Touch k1 so k2 becomes the eviction candidate.
	_, ok := c.Get(k1)
	require.True(t, ok)

	c.Put(k3, graphWithNode(3))

	_, ok = c.Get(k2)
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_PutSameKeyReplaces(t *testing.T) {
	c := New(2)
	key := NewKey(1, 1, 1000)

	c.Put(key, graphWithNode(1))
	c.Put(key, graphWithNode(2))

	g, ok := c.Get(key)
	require.True(t, ok)
	assert.Contains(t, g.Nodes, int64(2))
	assert.Equal(t, 1, c.Len())
}
