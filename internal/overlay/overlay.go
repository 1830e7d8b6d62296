// Package overlay projects the flood susceptibility raster onto a road
// graph: flood risk per edge, safety labels per node, and a penalized
// copy of the graph for route search.
package overlay

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Defaults for node labeling and penalization.
const (
	DefaultSafeThreshold   = 0.3
	DefaultRemoveThreshold = 0.66
	DefaultPenaltyFactor   = 10.0
)

// parallelThreshold is the edge count above which risk sampling fans out
// to workers. Below it the parallel-dispatch overhead exceeds the work.
const parallelThreshold = 500

// SampleEdgeRisk looks up the FSI raster at every edge's midpoint and
// attaches the value as the edge's flood risk. Lookups outside the
// raster default to 0. Each lookup is pure and independent, so large
// graphs are sampled by workers over disjoint index ranges against the
// shared read-only raster; results are merged before any edge is
// written.
func SampleEdgeRisk(ctx context.Context, g *domain.RoadGraph, fsi *domain.Raster) error {
	n := len(g.Edges)
	if n == 0 {
		return nil
	}

	risks := make([]float64, n)
	if n < parallelThreshold {
		sampleRange(g, fsi, risks, 0, n)
	} else {
		workers := runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
		chunk := (n + workers - 1) / workers

		eg, _ := errgroup.WithContext(ctx)
		for start := 0; start < n; start += chunk {
			start := start
			end := start + chunk
			if end > n {
				end = n
			}
			eg.Go(func() error {
				sampleRange(g, fsi, risks[start:end], start, end)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, e := range g.Edges {
		e.FloodRisk = risks[i]
	}
	return nil
}

// sampleRange fills out[i-start] with the midpoint risk of edge i for
// i in [start, end). It only reads the graph and the raster.
func sampleRange(g *domain.RoadGraph, fsi *domain.Raster, out []float64, start, end int) {
	for i := start; i < end; i++ {
		e := g.Edges[i]
		from, to := g.Nodes[e.From], g.Nodes[e.To]
		if from == nil || to == nil {
			continue
		}
		midLon := (from.Lon + to.Lon) / 2
		midLat := (from.Lat + to.Lat) / 2
		out[i-start] = fsi.Sample(midLon, midLat)
	}
}

// LabelSafeNodes samples FSI at every node's own coordinate and marks
// nodes below the safety threshold as candidate escape destinations.
func LabelSafeNodes(g *domain.RoadGraph, fsi *domain.Raster, safeThreshold float64) int {
	safe := 0
	for _, n := range g.Nodes {
		n.FSI = fsi.Sample(n.Lon, n.Lat)
		n.IsSafe = n.FSI < safeThreshold
		if n.IsSafe {
			safe++
		}
	}
	return safe
}

// Penalize derives the routing graph: edges at or above removeThreshold
// are dropped as impassable, and every remaining risky edge's length is
// inflated by (1 + risk x penaltyFactor). The input graph is left
// untouched so statistics keep seeing unpenalized lengths.
func Penalize(g *domain.RoadGraph, removeThreshold, penaltyFactor float64) *domain.RoadGraph {
	out := domain.NewRoadGraph()
	for _, n := range g.Nodes {
		nc := *n
		out.AddNode(&nc)
	}
	for _, e := range g.Edges {
		if e.FloodRisk >= removeThreshold {
			continue
		}
		ec := *e
		if ec.FloodRisk > 0 {
			ec.LengthM *= 1 + ec.FloodRisk*penaltyFactor
		}
		out.AddEdge(&ec)
	}
	return out
}
