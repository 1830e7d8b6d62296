// Package riskmodel combines normalized factor rasters, AHP weights, and
// a rainfall scenario into the Flood Susceptibility Index (FSI) and its
// 3-class classification.
package riskmodel

import (
	"fmt"
	"math"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Model defaults. RainMax is the design storm for urban flooding; Alpha
// above 1 amplifies intense storms super-linearly.
const (
	DefaultRainMaxMM = 150.0
	DefaultAlpha     = 1.2

	// Water bodies are forced into the flood extent only when rainfall
	// reaches this fraction of the design storm. Light rain over a lake
	// is not a flood.
	waterForceFraction = 0.3
)

// Model evaluates FSI = clamp(BaseRisk x RainFactor, 0, 1) over rasters
// that share one grid.
type Model struct {
	Weights map[string]float64
	RainMax float64
	Alpha   float64
}

// New builds a Model with default rainfall parameters. Weights must be
// validated (sum to 1) by the caller; ahp.ValidatedWeights enforces that.
func New(weights map[string]float64) Model {
	return Model{Weights: weights, RainMax: DefaultRainMaxMM, Alpha: DefaultAlpha}
}

// BaseRisk computes the weighted overlay of the five normalized factors.
// The river term is dampened by slope before weighting: river proximity
// alone overstates risk on steep terrain that drains quickly, so its
// contribution is river x slope.
//
// All rasters must share the grid; a mismatch fails with
// domain.ErrGridMismatch. NoData in any factor propagates to the output.
func (m Model) BaseRisk(elev, slope, soil, river, flow *domain.Raster) (*domain.Raster, error) {
	factors := []*domain.Raster{slope, soil, river, flow}
	for i, f := range factors {
		if !elev.SameGrid(f) {
			return nil, fmt.Errorf("%w: factor %d", domain.ErrGridMismatch, i+1)
		}
	}

	wElev := m.Weights["elevation"]
	wSlope := m.Weights["slope"]
	wSoil := m.Weights["soil"]
	wRiver := m.Weights["river"]
	wFlow := m.Weights["flow_accum"]

	out := domain.NewRaster(elev.Grid)
	for i := range out.Cells {
		e, s, so, r, f := elev.Cells[i], slope.Cells[i], soil.Cells[i], river.Cells[i], flow.Cells[i]
		if e == domain.NoData || s == domain.NoData || so == domain.NoData || r == domain.NoData || f == domain.NoData {
			out.Cells[i] = domain.NoData
			continue
		}
		out.Cells[i] = wElev*e + wSlope*s + wSoil*so + wRiver*(r*s) + wFlow*f
	}
	return out, nil
}

// RainFactor maps a rainfall depth to a [0, 1] multiplier:
// clamp(rain/RainMax, 0, 1)^Alpha. Monotonically non-decreasing in rain
// and capped at 1.0 from RainMax upward.
func (m Model) RainFactor(rainMM float64) float64 {
	ratio := rainMM / m.RainMax
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return math.Pow(ratio, m.Alpha)
}

// FSI scales base risk by the rainfall multiplier and clamps to [0, 1].
func (m Model) FSI(base *domain.Raster, rainMM float64) *domain.Raster {
	rf := m.RainFactor(rainMM)
	out := domain.NewRaster(base.Grid)
	for i, v := range base.Cells {
		if v == domain.NoData {
			out.Cells[i] = domain.NoData
			continue
		}
		out.Cells[i] = clamp01(v * rf)
	}
	return out
}

// ApplyWaterMask forces FSI to 1.0 on water cells when rainfall reaches
// 30% of the design storm; below that threshold the raster is returned
// unchanged (as a copy). Heavy rain saturates water bodies into the
// flood extent.
func (m Model) ApplyWaterMask(fsi, mask *domain.Raster, rainMM float64) (*domain.Raster, error) {
	if !fsi.SameGrid(mask) {
		return nil, fmt.Errorf("%w: water mask", domain.ErrGridMismatch)
	}
	out := fsi.Clone()
	if rainMM < waterForceFraction*m.RainMax {
		return out, nil
	}
	for i, w := range mask.Cells {
		if w > 0 && out.Cells[i] != domain.NoData {
			out.Cells[i] = 1.0
		}
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
