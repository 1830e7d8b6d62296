package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Node is a road-graph vertex. FSI and IsSafe are populated by the
// overlay stage; a fresh graph carries zero values.
type Node struct {
	ID       int64
	Lat, Lon float64
	FSI      float64
	IsSafe   bool
}

// Edge is a directed road segment. FloodRisk defaults to 0 until the
// overlay stage samples the susceptibility raster at the edge midpoint.
type Edge struct {
	From, To  int64
	LengthM   float64
	FloodRisk float64
}

// RoadGraph is a directed road network supplied by an external road-data
// collaborator. The overlay stage mutates it in place (risk sampling,
// node labeling); penalization works on a derived copy.
type RoadGraph struct {
	Nodes map[int64]*Node
	Edges []*Edge

	out map[int64][]*Edge
}

// NewRoadGraph creates an empty graph.
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		Nodes: make(map[int64]*Node),
		out:   make(map[int64][]*Edge),
	}
}

// AddNode inserts or replaces a node.
func (g *RoadGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
}

// AddEdge appends a directed edge and indexes it by source node.
func (g *RoadGraph) AddEdge(e *Edge) {
	g.Edges = append(g.Edges, e)
	g.out[e.From] = append(g.out[e.From], e)
}

// Outgoing returns the edges leaving a node.
func (g *RoadGraph) Outgoing(id int64) []*Edge {
	return g.out[id]
}

// Clone returns a deep copy. Node and edge structs are copied, so
// mutating the clone never aliases the original.
func (g *RoadGraph) Clone() *RoadGraph {
	c := NewRoadGraph()
	for _, n := range g.Nodes {
		nc := *n
		c.AddNode(&nc)
	}
	for _, e := range g.Edges {
		ec := *e
		c.AddEdge(&ec)
	}
	return c
}

// NearestNode snaps a coordinate to the closest node by haversine
// distance. Returns nil for an empty graph.
func (g *RoadGraph) NearestNode(lat, lon float64) *Node {
	p := orb.Point{lon, lat}
	var best *Node
	bestDist := math.Inf(1)
	for _, n := range g.Nodes {
		d := geo.DistanceHaversine(p, orb.Point{n.Lon, n.Lat})
		if d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best
}
