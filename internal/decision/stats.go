// Package decision summarizes an analysis into risk statistics and a
// situation report for downstream reporting and visualization stages.
package decision

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// ErrNoValidPixels indicates a raster in which every cell is NoData.
var ErrNoValidPixels = errors.New("raster has no valid pixels")

// ClassStats describes one risk class's share of the analyzed area.
type ClassStats struct {
	Pixels  int     `json:"pixels"`
	Pct     float64 `json:"pct"`
	AreaKM2 float64 `json:"area_km2"`
}

// RasterStats summarizes the FSI raster under a pair of thresholds.
type RasterStats struct {
	TotalPixels  int        `json:"total_pixels"`
	PixelAreaM2  float64    `json:"pixel_area_m2"`
	TotalAreaKM2 float64    `json:"total_area_km2"`
	Low          ClassStats `json:"low_risk"`
	Medium       ClassStats `json:"medium_risk"`
	High         ClassStats `json:"high_risk"`
	MeanRisk     float64    `json:"mean_risk"`
	MaxRisk      float64    `json:"max_risk"`
}

// ComputeRasterStats partitions valid FSI cells by the given thresholds
// (Low: <= lowMax, Medium: <= mediumMax, High: above) and converts pixel
// counts to ground area. NoData cells are excluded throughout.
func ComputeRasterStats(fsi *domain.Raster, lowMax, mediumMax float64) (RasterStats, error) {
	pixelArea := fsi.Grid.PixelAreaM2()

	var total, low, medium, high int
	var sum, maxRisk float64
	for _, v := range fsi.Cells {
		if v == domain.NoData {
			continue
		}
		total++
		sum += v
		if v > maxRisk {
			maxRisk = v
		}
		switch {
		case v <= lowMax:
			low++
		case v <= mediumMax:
			medium++
		default:
			high++
		}
	}
	if total == 0 {
		return RasterStats{}, ErrNoValidPixels
	}

	classStats := func(count int) ClassStats {
		return ClassStats{
			Pixels:  count,
			Pct:     float64(count) / float64(total) * 100,
			AreaKM2: float64(count) * pixelArea / 1e6,
		}
	}

	return RasterStats{
		TotalPixels:  total,
		PixelAreaM2:  pixelArea,
		TotalAreaKM2: float64(total) * pixelArea / 1e6,
		Low:          classStats(low),
		Medium:       classStats(medium),
		High:         classStats(high),
		MeanRisk:     sum / float64(total),
		MaxRisk:      maxRisk,
	}, nil
}

// RoadStats counts road segments per risk class on the risk-sampled,
// unpenalized graph.
type RoadStats struct {
	TotalSegments  int `json:"total_segments"`
	HighSegments   int `json:"high_risk_segments"`
	MediumSegments int `json:"medium_risk_segments"`
	SafeSegments   int `json:"safe_segments"`
}

// ComputeRoadStats classifies edges by flood risk using the same
// thresholds as the raster classes.
func ComputeRoadStats(g *domain.RoadGraph, lowMax, mediumMax float64) RoadStats {
	s := RoadStats{TotalSegments: len(g.Edges)}
	for _, e := range g.Edges {
		switch {
		case e.FloodRisk > mediumMax:
			s.HighSegments++
		case e.FloodRisk > lowMax:
			s.MediumSegments++
		default:
			s.SafeSegments++
		}
	}
	return s
}

// RouteSummary condenses an escape route for the report.
type RouteSummary struct {
	Waypoints      int     `json:"waypoints"`
	LengthM        float64 `json:"length_m"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLon float64 `json:"destination_lon"`
	DestinationFSI float64 `json:"destination_fsi"`
}

// Report is the situation report published after each analysis.
type Report struct {
	ID            string        `json:"id"`
	GeneratedAt   time.Time     `json:"generated_at"`
	RainMM        float64       `json:"rain_mm"`
	Classifier    string        `json:"classifier"`
	Raster        RasterStats   `json:"raster"`
	Roads         RoadStats     `json:"roads"`
	Route         *RouteSummary `json:"route,omitempty"`
	NoRouteReason string        `json:"no_route_reason,omitempty"`
}

// BuildReport assembles a Report. A nil route is recorded as the
// expected "no reachable safe zone" outcome, never an error.
func BuildReport(rainMM float64, classifier string, raster RasterStats, roads RoadStats, route *domain.EscapeRoute) Report {
	r := Report{
		ID:          uuid.NewString(),
		GeneratedAt: clock.Now(),
		RainMM:      rainMM,
		Classifier:  classifier,
		Raster:      raster,
		Roads:       roads,
	}
	if route == nil {
		r.NoRouteReason = "no reachable safe zone"
		return r
	}
	r.Route = &RouteSummary{
		Waypoints:      len(route.Waypoints),
		LengthM:        route.LengthM,
		DestinationLat: route.Destination.Lat,
		DestinationLon: route.Destination.Lon,
		DestinationFSI: route.Destination.FSI,
	}
	return r
}
