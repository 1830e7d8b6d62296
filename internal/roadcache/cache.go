// Package roadcache holds fetched road graphs so repeated analyses of
// the same area skip the expensive road-network download. The cache is
// an explicit object owned by the caller, keyed by rounded coordinates
// and radius, with capacity-bound LRU eviction.
package roadcache

import (
	"math"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Key identifies a fetched area. Coordinates are rounded to 4 decimals
// (~11m) so nearby requests share an entry.
type Key struct {
	Lat, Lon float64
	RadiusM  int
}

// NewKey rounds a raw request into a cache key.
func NewKey(lat, lon, radiusM float64) Key {
	return Key{
		Lat:     math.Round(lat*10000) / 10000,
		Lon:     math.Round(lon*10000) / 10000,
		RadiusM: int(radiusM),
	}
}

// Cache is a thread-safe LRU cache of road graphs.
type Cache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[Key]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   Key
	graph *domain.RoadGraph
	prev  *entry
	next  *entry
}

// New creates a cache holding at most maxEntries graphs.
func New(maxEntries int) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[Key]*entry),
	}
}

// Get returns the cached graph for a key, refreshing its recency.
func (c *Cache) Get(key Key) (*domain.RoadGraph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.graph, true
}

// Put stores a graph, evicting the least recently used entry when full.
func (c *Cache) Put(key Key, g *domain.RoadGraph) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.graph = g
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, graph: g}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached graphs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
