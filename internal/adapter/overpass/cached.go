package overpass

import (
	"context"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/roadcache"
)

// RoadFetcher downloads the road network around a center point.
type RoadFetcher interface {
	FetchRoadGraph(ctx context.Context, lat, lon, radiusM float64) (*domain.RoadGraph, error)
}

// CachedFetcher wraps a RoadFetcher with an in-memory LRU cache so
// repeated scenarios over the same area skip the network round trip.
type CachedFetcher struct {
	inner RoadFetcher
	cache *roadcache.Cache
}

// NewCachedFetcher creates a cache decorator around a road fetcher.
func NewCachedFetcher(inner RoadFetcher, maxEntries int) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		cache: roadcache.New(maxEntries),
	}
}

// FetchRoadGraph returns a private copy of the cached graph when the
// rounded key hits. The analysis mutates its graph in place, so the
// cached original must never be handed out directly.
func (c *CachedFetcher) FetchRoadGraph(ctx context.Context, lat, lon, radiusM float64) (*domain.RoadGraph, error) {
	key := roadcache.NewKey(lat, lon, radiusM)
	if g, ok := c.cache.Get(key); ok {
		return g.Clone(), nil
	}

	g, err := c.inner.FetchRoadGraph(ctx, lat, lon, radiusM)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty graphs so a transient empty response can be retried.
	if len(g.Nodes) > 0 {
		c.cache.Put(key, g.Clone())
	}
	return g, nil
}
