// Package http exposes the service API: analysis submission plus the
// operational endpoints for health, readiness, metrics, and the latest
// situation report.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flood-risk-service/internal/decision"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
)

// AnalysisService is the slice of the pipeline Analyzer the server needs.
type AnalysisService interface {
	CheckReadiness(ctx context.Context) error
	LatestReport() (decision.Report, bool)
	Grid(b orb.Bound) domain.Grid
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Server exposes analyze, health, readiness, metrics, and report routes.
type Server struct {
	httpServer *http.Server
	analysis   AnalysisService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /analyze, /healthz, /readyz,
// /metrics, and /status routes.
func NewServer(addr string, analysis AnalysisService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		analysis: analysis,
		logger:   logger,
	}

	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// analyzeRequest is the submission payload. Raster cells are row-major
// from the north-west corner and must match the grid the service derives
// from the bound; GET the error message to learn the expected length.
type analyzeRequest struct {
	Bound     [4]float64                 `json:"bound"` // west, south, east, north
	RainMM    float64                    `json:"rain_mm"`
	Water     *geojson.FeatureCollection `json:"water,omitempty"`
	DEM       []float64                  `json:"dem"`
	Elevation []float64                  `json:"elevation"`
	Slope     []float64                  `json:"slope"`
	Soil      []float64                  `json:"soil"`
	StartLat  float64                    `json:"start_lat"`
	StartLon  float64                    `json:"start_lon"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	req, err := s.buildRequest(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.analysis.Run(r.Context(), req)
	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) buildRequest(in analyzeRequest) (pipeline.Request, error) {
	west, south, east, north := in.Bound[0], in.Bound[1], in.Bound[2], in.Bound[3]
	if east <= west || north <= south {
		return pipeline.Request{}, errors.New("bound must be [west south east north] with positive extent")
	}
	if in.RainMM < 0 {
		return pipeline.Request{}, errors.New("rain_mm must not be negative")
	}

	bound := orb.Bound{Min: orb.Point{west, south}, Max: orb.Point{east, north}}
	grid := s.analysis.Grid(bound)

	dem, err := rasterFrom("dem", in.DEM, grid)
	if err != nil {
		return pipeline.Request{}, err
	}
	elevation, err := rasterFrom("elevation", in.Elevation, grid)
	if err != nil {
		return pipeline.Request{}, err
	}
	slope, err := rasterFrom("slope", in.Slope, grid)
	if err != nil {
		return pipeline.Request{}, err
	}
	soil, err := rasterFrom("soil", in.Soil, grid)
	if err != nil {
		return pipeline.Request{}, err
	}

	var water []orb.Geometry
	if in.Water != nil {
		for _, f := range in.Water.Features {
			if f.Geometry != nil {
				water = append(water, f.Geometry)
			}
		}
	}

	return pipeline.Request{
		Bound:     bound,
		RainMM:    in.RainMM,
		Water:     water,
		DEM:       dem,
		Elevation: elevation,
		Slope:     slope,
		Soil:      soil,
		StartLat:  in.StartLat,
		StartLon:  in.StartLon,
	}, nil
}

func rasterFrom(name string, cells []float64, grid domain.Grid) (*domain.Raster, error) {
	if len(cells) != grid.Width*grid.Height {
		return nil, fmt.Errorf("%s raster size mismatch: got %d cells, grid is %dx%d",
			name, len(cells), grid.Width, grid.Height)
	}
	r := domain.NewRaster(grid)
	copy(r.Cells, cells)
	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.analysis.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleStatus serves the latest situation report, or 404 before the
// first analysis completes.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	report, ok := s.analysis.LatestReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no analysis completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
