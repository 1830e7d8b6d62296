package riskmodel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Risk classes encoded into the classified raster. NoData cells stay NoData.
const (
	ClassLow    = 1.0
	ClassMedium = 2.0
	ClassHigh   = 3.0
)

// Policy chooses the two thresholds that partition FSI into the three
// ordered classes. The choice between the fixed and the adaptive policy
// is the caller's; neither is a hidden default.
type Policy interface {
	// Thresholds returns (lowMax, mediumMax) for a scenario whose
	// maximum FSI over valid cells is maxFSI.
	Thresholds(maxFSI float64) (lowMax, mediumMax float64)
	// Name identifies the policy in logs and reports.
	Name() string
}

// FixedThresholds applies uniform physical thresholds regardless of
// scenario.
type FixedThresholds struct {
	LowMax    float64
	MediumMax float64
}

// DefaultFixed is the fixed policy with the 0.3 / 0.6 thresholds.
func DefaultFixed() FixedThresholds {
	return FixedThresholds{LowMax: 0.3, MediumMax: 0.6}
}

func (p FixedThresholds) Thresholds(float64) (float64, float64) {
	return p.LowMax, p.MediumMax
}

func (p FixedThresholds) Name() string { return "fixed" }

// AdaptiveThresholds scales thresholds to the scenario's own maximum
// FSI, guaranteeing a visible 3-way gradient even when absolute FSI
// values are small (low-rainfall scenarios).
type AdaptiveThresholds struct {
	LowFrac    float64
	MediumFrac float64
}

// DefaultAdaptive is the adaptive policy at 0.4x / 0.7x of the maximum.
func DefaultAdaptive() AdaptiveThresholds {
	return AdaptiveThresholds{LowFrac: 0.4, MediumFrac: 0.7}
}

func (p AdaptiveThresholds) Thresholds(maxFSI float64) (float64, float64) {
	return p.LowFrac * maxFSI, p.MediumFrac * maxFSI
}

func (p AdaptiveThresholds) Name() string { return "adaptive" }

// PolicyByName maps a config value to a policy with default parameters.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "fixed":
		return DefaultFixed(), nil
	case "adaptive":
		return DefaultAdaptive(), nil
	default:
		return nil, fmt.Errorf("unknown risk classifier %q (want fixed or adaptive)", name)
	}
}

// Classify partitions an FSI raster into the Low/Medium/High classes
// under the given policy. NoData cells are preserved and excluded from
// the scenario maximum.
func Classify(fsi *domain.Raster, policy Policy) *domain.Raster {
	valid := make([]float64, 0, len(fsi.Cells))
	for _, v := range fsi.Cells {
		if v != domain.NoData {
			valid = append(valid, v)
		}
	}
	maxFSI := 0.0
	if len(valid) > 0 {
		maxFSI = floats.Max(valid)
	}
	lowMax, mediumMax := policy.Thresholds(maxFSI)

	out := domain.NewRaster(fsi.Grid)
	for i, v := range fsi.Cells {
		switch {
		case v == domain.NoData:
			out.Cells[i] = domain.NoData
		case v > mediumMax:
			out.Cells[i] = ClassHigh
		case v > lowMax:
			out.Cells[i] = ClassMedium
		default:
			out.Cells[i] = ClassLow
		}
	}
	return out
}
