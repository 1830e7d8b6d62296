// Package escape searches a penalized road graph for the nearest
// reachable safe node from a start location.
package escape

import (
	"container/heap"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Router runs A* toward the set of safe nodes. The heuristic, the
// minimum haversine distance to any safe node, stays admissible because
// penalization only ever inflates edge lengths above ground distance.
type Router struct {
	logger *slog.Logger
}

// New creates a Router.
func New(logger *slog.Logger) *Router {
	return &Router{logger: logger}
}

// FindRoute snaps the start coordinate to the nearest graph node and
// searches for the cheapest path to any node marked safe. It returns nil
// when the graph has no safe nodes or none is reachable; that is an
// expected, reportable outcome, not an error.
func (r *Router) FindRoute(g *domain.RoadGraph, startLat, startLon float64) *domain.EscapeRoute {
	start := g.NearestNode(startLat, startLon)
	if start == nil {
		r.logger.Warn("escape routing on empty graph")
		return nil
	}

	if start.IsSafe {
		r.logger.Info("start location already in safe zone", "node", start.ID, "fsi", start.FSI)
		return &domain.EscapeRoute{
			Waypoints:   []domain.Waypoint{{Lat: start.Lat, Lon: start.Lon}},
			Destination: domain.Destination{Lat: start.Lat, Lon: start.Lon, FSI: start.FSI},
		}
	}

	safeSet := make(map[int64]bool)
	var safePoints []orb.Point
	for _, n := range g.Nodes {
		if n.IsSafe {
			safeSet[n.ID] = true
			safePoints = append(safePoints, orb.Point{n.Lon, n.Lat})
		}
	}
	if len(safeSet) == 0 {
		r.logger.Warn("no safe nodes in graph, cannot route")
		return nil
	}

	h := func(n *domain.Node) float64 {
		p := orb.Point{n.Lon, n.Lat}
		best := math.Inf(1)
		for _, s := range safePoints {
			if d := geo.DistanceHaversine(p, s); d < best {
				best = d
			}
		}
		return best
	}

	gScore := map[int64]float64{start.ID: 0}
	cameFrom := make(map[int64]int64)
	finalized := make(map[int64]bool)

	open := &openQueue{{f: h(start), g: 0, node: start.ID}}
	heap.Init(open)

	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem)
		if finalized[cur.node] {
			// Lazy deletion: a cheaper entry for this node was already popped.
			continue
		}
		finalized[cur.node] = true

		if safeSet[cur.node] {
			return r.reconstruct(g, cameFrom, start.ID, cur.node, gScore[cur.node])
		}

		for _, e := range g.Outgoing(cur.node) {
			next := g.Nodes[e.To]
			if next == nil || finalized[e.To] {
				continue
			}
			tentative := cur.g + e.LengthM
			if best, seen := gScore[e.To]; seen && tentative >= best {
				continue
			}
			gScore[e.To] = tentative
			cameFrom[e.To] = cur.node
			heap.Push(open, openItem{f: tentative + h(next), g: tentative, node: e.To})
		}
	}

	r.logger.Warn("no escape route found, all paths blocked")
	return nil
}

func (r *Router) reconstruct(g *domain.RoadGraph, cameFrom map[int64]int64, startID, goalID int64, cost float64) *domain.EscapeRoute {
	var ids []int64
	for id := goalID; ; {
		ids = append(ids, id)
		if id == startID {
			break
		}
		id = cameFrom[id]
	}
	// Reverse into start-to-goal order.
	waypoints := make([]domain.Waypoint, len(ids))
	for i, id := range ids {
		n := g.Nodes[id]
		waypoints[len(ids)-1-i] = domain.Waypoint{Lat: n.Lat, Lon: n.Lon}
	}

	dest := g.Nodes[goalID]
	r.logger.Info("escape route found",
		"nodes", len(waypoints),
		"cost_m", cost,
		"destination_fsi", dest.FSI,
	)
	return &domain.EscapeRoute{
		Waypoints:   waypoints,
		Destination: domain.Destination{Lat: dest.Lat, Lon: dest.Lon, FSI: dest.FSI},
		LengthM:     cost,
	}
}

// openItem is a frontier entry: f = g + heuristic. Stale duplicates are
// tolerated and skipped on pop rather than using decrease-key.
type openItem struct {
	f, g float64
	node int64
}

type openQueue []openItem

func (q openQueue) Len() int            { return len(q) }
func (q openQueue) Less(i, j int) bool  { return q[i].f < q[j].f }
func (q openQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *openQueue) Push(x any)         { *q = append(*q, x.(openItem)) }
func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
