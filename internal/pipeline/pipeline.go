// Package pipeline orchestrates one flood-risk analysis: AHP weights
// feed the risk model, hydrology feeds the risk model, the risk raster
// feeds the road overlay, and the penalized road graph feeds the escape
// router.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/flood-risk-service/internal/ahp"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/decision"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/escape"
	"github.com/couchcryptid/flood-risk-service/internal/hydrology"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/overlay"
	"github.com/couchcryptid/flood-risk-service/internal/riskmodel"
)

// ReportPublisher delivers situation reports to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, report decision.Report) error
}

// RoadFetcher downloads the road network around a center point. Used
// when a request does not carry its own graph.
type RoadFetcher interface {
	FetchRoadGraph(ctx context.Context, lat, lon, radiusM float64) (*domain.RoadGraph, error)
}

// Request carries everything one analysis needs. The DEM and the
// normalized factor rasters come from the external terrain collaborators
// and must be aligned to the grid derived from the bounding box and cell
// size; the road graph comes from the road-network collaborator.
type Request struct {
	Bound  orb.Bound
	RainMM float64

	Water []orb.Geometry
	DEM   *domain.Raster

	Elevation *domain.Raster
	Slope     *domain.Raster
	Soil      *domain.Raster

	Roads              *domain.RoadGraph
	StartLat, StartLon float64
}

// Result bundles the produced artifacts for downstream stages. Route is
// nil when no safe node was reachable; the risk rasters stay valid.
type Result struct {
	FSI        *domain.Raster
	Classified *domain.Raster
	WaterMask  *domain.Raster
	Roads      *domain.RoadGraph
	Route      *domain.EscapeRoute
	Report     decision.Report
}

// Analyzer runs analyses with weights validated once at construction.
type Analyzer struct {
	model     riskmodel.Model
	policy    riskmodel.Policy
	router    *escape.Router
	publisher ReportPublisher
	roads     RoadFetcher

	cellSizeM       float64
	fetchRadiusM    float64
	safeThreshold   float64
	removeThreshold float64
	penaltyFactor   float64
	statThresholds  riskmodel.FixedThresholds

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	latest  atomic.Pointer[decision.Report]
}

// New validates the default AHP matrix and wires an Analyzer. A nil
// publisher disables report publishing; a nil roads fetcher requires
// every request to carry its own graph.
func New(cfg *config.Config, roads RoadFetcher, publisher ReportPublisher, logger *slog.Logger, metrics *observability.Metrics) (*Analyzer, error) {
	weights, err := ahp.ValidatedWeights(ahp.DefaultMatrix(), ahp.DefaultFactors)
	if err != nil {
		return nil, fmt.Errorf("derive factor weights: %w", err)
	}

	policy, err := riskmodel.PolicyByName(cfg.RiskClassifier)
	if err != nil {
		return nil, err
	}

	model := riskmodel.New(weights)
	model.RainMax = cfg.RainMaxMM
	model.Alpha = cfg.RainAlpha

	logger.Info("factor weights validated", "weights", weights, "classifier", policy.Name())

	return &Analyzer{
		model:           model,
		policy:          policy,
		router:          escape.New(logger),
		publisher:       publisher,
		roads:           roads,
		cellSizeM:       cfg.CellSizeM,
		fetchRadiusM:    cfg.RoadFetchRadiusM,
		safeThreshold:   cfg.SafeNodeThreshold,
		removeThreshold: cfg.RemoveThreshold,
		penaltyFactor:   cfg.PenaltyFactor,
		statThresholds:  riskmodel.DefaultFixed(),
		logger:          logger,
		metrics:         metrics,
	}, nil
}

// CheckReadiness returns nil once the analyzer has completed at least
// one analysis.
func (a *Analyzer) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errors.New("no analysis completed yet")
	}
	return nil
}

// Grid returns the analysis grid the Analyzer will derive for a bound,
// letting callers shape input rasters before submitting a request.
func (a *Analyzer) Grid(b orb.Bound) domain.Grid {
	return hydrology.GridFromBound(b, a.cellSizeM)
}

// LatestReport returns the report of the most recent successful
// analysis, or false before the first one completes.
func (a *Analyzer) LatestReport() (decision.Report, bool) {
	r := a.latest.Load()
	if r == nil {
		return decision.Report{}, false
	}
	return *r, true
}

// Run executes one full analysis. Routing failure is an expected outcome
// reported in the result; raster or grid errors abort the analysis.
func (a *Analyzer) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	a.metrics.AnalysesStarted.Inc()

	res, err := a.run(ctx, req)
	if err != nil {
		a.metrics.AnalysisErrors.Inc()
		return Result{}, err
	}

	a.metrics.AnalysesCompleted.Inc()
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	a.latest.Store(&res.Report)
	a.ready.Store(true)
	a.metrics.ServiceReady.Set(1)
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, req Request) (Result, error) {
	grid := hydrology.GridFromBound(req.Bound, a.cellSizeM)

	riverFactor, waterMask := hydrology.RiverProximity(req.Water, grid)
	a.logger.Debug("river proximity computed", "width", grid.Width, "height", grid.Height)

	if req.DEM.Grid != grid {
		return Result{}, fmt.Errorf("%w: DEM", domain.ErrGridMismatch)
	}
	flow := hydrology.NormalizeFlowAccumulation(hydrology.FlowAccumulation(req.DEM))

	base, err := a.model.BaseRisk(req.Elevation, req.Slope, req.Soil, riverFactor, flow)
	if err != nil {
		return Result{}, err
	}
	fsi := a.model.FSI(base, req.RainMM)
	fsi, err = a.model.ApplyWaterMask(fsi, waterMask, req.RainMM)
	if err != nil {
		return Result{}, err
	}
	classified := riskmodel.Classify(fsi, a.policy)

	roads := req.Roads
	if roads == nil {
		if a.roads == nil {
			return Result{}, errors.New("request carries no road graph and no fetcher is configured")
		}
		roads, err = a.roads.FetchRoadGraph(ctx, req.StartLat, req.StartLon, a.fetchRadiusM)
		if err != nil {
			return Result{}, fmt.Errorf("fetch road network: %w", err)
		}
	}

	if err := overlay.SampleEdgeRisk(ctx, roads, fsi); err != nil {
		return Result{}, fmt.Errorf("sample edge risk: %w", err)
	}
	a.metrics.EdgesSampled.Observe(float64(len(roads.Edges)))

	safeCount := overlay.LabelSafeNodes(roads, fsi, a.safeThreshold)
	a.metrics.SafeNodes.Observe(float64(safeCount))
	a.logger.Info("road overlay complete",
		"edges", len(roads.Edges),
		"safe_nodes", safeCount,
	)

	penalized := overlay.Penalize(roads, a.removeThreshold, a.penaltyFactor)
	route := a.router.FindRoute(penalized, req.StartLat, req.StartLon)
	if route != nil {
		a.metrics.EscapeRoutesFound.Inc()
	} else {
		a.metrics.EscapeRoutesNone.Inc()
	}

	rasterStats, err := decision.ComputeRasterStats(fsi, a.statThresholds.LowMax, a.statThresholds.MediumMax)
	if err != nil {
		return Result{}, fmt.Errorf("raster statistics: %w", err)
	}
	roadStats := decision.ComputeRoadStats(roads, a.statThresholds.LowMax, a.statThresholds.MediumMax)
	report := decision.BuildReport(req.RainMM, a.policy.Name(), rasterStats, roadStats, route)

	a.publish(ctx, report)

	return Result{
		FSI:        fsi,
		Classified: classified,
		WaterMask:  waterMask,
		Roads:      roads,
		Route:      route,
		Report:     report,
	}, nil
}

// publish sends the report when a publisher is configured. Publishing is
// best-effort: a failed delivery never fails the analysis.
func (a *Analyzer) publish(ctx context.Context, report decision.Report) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, report); err != nil {
		a.logger.Warn("report publish failed", "report_id", report.ID, "error", err)
		return
	}
	a.metrics.ReportsPublished.Inc()
}
