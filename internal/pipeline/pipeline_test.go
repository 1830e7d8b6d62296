package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/decision"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/riskmodel"
)

type capturePublisher struct {
	reports []decision.Report
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, r decision.Report) error {
	if p.err != nil {
		return p.err
	}
	p.reports = append(p.reports, r)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		CellSizeM:         1113.2,
		RainMaxMM:         150,
		RainAlpha:         1.2,
		RiskClassifier:    "fixed",
		SafeNodeThreshold: 0.3,
		RemoveThreshold:   0.66,
		PenaltyFactor:     10,
	}
}

func newTestAnalyzer(t *testing.T, roads RoadFetcher, pub ReportPublisher) *Analyzer {
	t.Helper()
	a, err := New(testConfig(),
		roads,
		pub,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
	require.NoError(t, err)
	return a
}

func uniformRaster(g domain.Grid, v float64) *domain.Raster {
	r := domain.NewRaster(g)
	for i := range r.Cells {
		r.Cells[i] = v
	}
	return r
}

// testRequest builds a 10x10 town: a river along the western column, a
// DEM sloping down toward it, uniform factor rasters, and a west-east
// road leading away from the water.
func testRequest() Request {
	grid := domain.NewGrid(0, 0, 0.1, 0.1, 1113.2)

	dem := domain.NewRaster(grid)
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			dem.Set(row, col, float64(row+col))
		}
	}

	roads := domain.NewRoadGraph()
	for i := 0; i < 5; i++ {
		roads.AddNode(&domain.Node{
			ID:  int64(i + 1),
			Lat: 0.095,
			Lon: 0.005 + 0.02*float64(i),
		})
	}
	for i := int64(1); i < 5; i++ {
		roads.AddEdge(&domain.Edge{From: i, To: i + 1, LengthM: 2250})
		roads.AddEdge(&domain.Edge{From: i + 1, To: i, LengthM: 2250})
	}

	return Request{
		Bound:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0.1, 0.1}},
		RainMM: 120,
		Water: []orb.Geometry{
			orb.LineString{{0.005, 0.005}, {0.005, 0.095}},
		},
		DEM:       dem,
		Elevation: uniformRaster(grid, 0.5),
		Slope:     uniformRaster(grid, 0.5),
		Soil:      uniformRaster(grid, 0.5),
		Roads:     roads,
		StartLat:  0.095,
		StartLon:  0.005,
	}
}

func TestAnalyzerRun(t *testing.T) {
	pub := &capturePublisher{}
	a := newTestAnalyzer(t, nil, pub)

	assert.Error(t, a.CheckReadiness(context.Background()), "not ready before first analysis")

	req := testRequest()
	res, err := a.Run(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.FSI)
	for _, v := range res.FSI.Cells {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	grid := res.FSI.Grid
	// rain above the forcing threshold: the river column is full flood
	for row := 0; row < grid.Height; row++ {
		assert.Equal(t, 1.0, res.FSI.At(row, 0))
	}

	require.NotNil(t, res.Classified)
	for _, c := range res.Classified.Cells {
		assert.Contains(t, []float64{riskmodel.ClassLow, riskmodel.ClassMedium, riskmodel.ClassHigh}, c)
	}

	// the start node sits on the river; the route leads east to dry land
	start := req.Roads.Nodes[1]
	assert.False(t, start.IsSafe)
	require.NotNil(t, res.Route)
	require.NotEmpty(t, res.Route.Waypoints)
	assert.Less(t, res.Route.Destination.FSI, 0.3)

	report := res.Report
	assert.Equal(t, 120.0, report.RainMM)
	assert.Equal(t, "fixed", report.Classifier)
	assert.Equal(t, 100, report.Raster.TotalPixels)
	assert.InDelta(t, 100.0,
		report.Raster.Low.Pct+report.Raster.Medium.Pct+report.Raster.High.Pct, 1e-9)
	assert.Equal(t, 8, report.Roads.TotalSegments)
	require.NotNil(t, report.Route)
	assert.Empty(t, report.NoRouteReason)

	require.Len(t, pub.reports, 1)
	assert.Equal(t, report.ID, pub.reports[0].ID)

	latest, ok := a.LatestReport()
	require.True(t, ok)
	assert.Equal(t, report.ID, latest.ID)

	assert.NoError(t, a.CheckReadiness(context.Background()))
}

func TestAnalyzerRunDEMGridMismatch(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)

	req := testRequest()
	req.DEM = domain.NewRaster(domain.NewGrid(0, 0, 0.05, 0.05, 1113.2))

	_, err := a.Run(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGridMismatch)
	assert.Error(t, a.CheckReadiness(context.Background()), "failed analysis must not mark ready")
}

func TestAnalyzerRunNoSafeZone(t *testing.T) {
	a := newTestAnalyzer(t, nil, nil)

	// every road node sits on the flooded river column
	req := testRequest()
	roads := domain.NewRoadGraph()
	roads.AddNode(&domain.Node{ID: 1, Lat: 0.095, Lon: 0.005})
	roads.AddNode(&domain.Node{ID: 2, Lat: 0.085, Lon: 0.005})
	roads.AddEdge(&domain.Edge{From: 1, To: 2, LengthM: 1120})
	req.Roads = roads

	res, err := a.Run(context.Background(), req)
	require.NoError(t, err, "routing failure is not an analysis failure")
	assert.Nil(t, res.Route)
	assert.Nil(t, res.Report.Route)
	assert.Equal(t, "no reachable safe zone", res.Report.NoRouteReason)
}

func TestAnalyzerRunPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	a := newTestAnalyzer(t, nil, pub)

	res, err := a.Run(context.Background(), testRequest())
	require.NoError(t, err, "publish failure must not fail the analysis")
	assert.NotNil(t, res.Route)
}

func TestNewRejectsUnknownClassifier(t *testing.T) {
	cfg := testConfig()
	cfg.RiskClassifier = "percentile"

	_, err := New(cfg, nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)
	require.Error(t, err)
}

type stubFetcher struct {
	calls int
	graph *domain.RoadGraph
}

func (f *stubFetcher) FetchRoadGraph(_ context.Context, _, _, _ float64) (*domain.RoadGraph, error) {
	f.calls++
	return f.graph, nil
}

func TestAnalyzerRunFetchesRoadsWhenAbsent(t *testing.T) {
	req := testRequest()
	fetcher := &stubFetcher{graph: req.Roads}
	req.Roads = nil

	a := newTestAnalyzer(t, fetcher, nil)
	res, err := a.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
	require.NotNil(t, res.Roads)
	assert.NotNil(t, res.Route)
}

func TestAnalyzerRunNoRoadsNoFetcher(t *testing.T) {
	req := testRequest()
	req.Roads = nil

	a := newTestAnalyzer(t, nil, nil)
	_, err := a.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no road graph")
}
