// Package overpass downloads road networks from the Overpass API and
// assembles them into routable graphs.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Drivable highway classes, matching what routing over the graph needs.
const highwayFilter = "motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service"

// Client fetches road data from an Overpass endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Overpass client against the public endpoint.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://overpass-api.de/api/interpreter",
		logger:  logger,
	}
}

// FetchRoadGraph downloads drivable ways within radiusM of the center
// and assembles a directed road graph. Edge lengths are summed haversine
// distances over each way's geometry; two-way streets get an edge in each
// direction.
func (c *Client) FetchRoadGraph(ctx context.Context, lat, lon, radiusM float64) (*domain.RoadGraph, error) {
	query := fmt.Sprintf(
		`[out:json];way["highway"~"^(%s)$"](around:%.0f,%.6f,%.6f);out geom;`,
		highwayFilter, radiusM, lat, lon,
	)

	resp, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, err
	}

	g := buildGraph(resp.Elements)
	c.logger.Info("road network fetched",
		"ways", len(resp.Elements),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
	)
	return g, nil
}

func (c *Client) doRequest(ctx context.Context, query string) (*response, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("overpass API error: status %d: %s", resp.StatusCode, body)
	}

	var overpassResp response
	if err := json.NewDecoder(resp.Body).Decode(&overpassResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &overpassResp, nil
}

// buildGraph converts Overpass way elements into a road graph. Ways
// share node IDs where they intersect, which is what makes the result
// routable across ways.
func buildGraph(ways []element) *domain.RoadGraph {
	g := domain.NewRoadGraph()
	for _, w := range ways {
		if w.Type != "way" || len(w.Nodes) != len(w.Geometry) {
			continue
		}
		oneway := w.Tags["oneway"] == "yes" || w.Tags["oneway"] == "1"
		for i := 0; i+1 < len(w.Nodes); i++ {
			from, to := w.Nodes[i], w.Nodes[i+1]
			a, b := w.Geometry[i], w.Geometry[i+1]

			if _, ok := g.Nodes[from]; !ok {
				g.AddNode(&domain.Node{ID: from, Lat: a.Lat, Lon: a.Lon})
			}
			if _, ok := g.Nodes[to]; !ok {
				g.AddNode(&domain.Node{ID: to, Lat: b.Lat, Lon: b.Lon})
			}

			length := geo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
			g.AddEdge(&domain.Edge{From: from, To: to, LengthM: length})
			if !oneway {
				g.AddEdge(&domain.Edge{From: to, To: from, LengthM: length})
			}
		}
	}
	return g
}

// Overpass API response types.

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Nodes    []int64           `json:"nodes"`
	Geometry []point           `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
