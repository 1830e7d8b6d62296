package hydrology

import (
	"math"
	"sort"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// d8Offsets enumerates the 8-connected neighborhood (row, col).
var d8Offsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// FlowAccumulation simulates single-direction (D8) surface drainage over
// an elevation grid. Every cell drains to its steepest-descent neighbor,
// strictly requiring a positive elevation drop; cells with no lower
// neighbor are local sinks and keep what they collect.
//
// Cells are processed in strictly descending elevation order, so a
// cell's accumulation is final before it is passed downstream. Each cell
// contributes one unit of its own, giving integer drainage-convergence
// counts: on a DEM with no ties the counts across the grid sum to the
// number of cells.
func FlowAccumulation(dem *domain.Raster) *domain.Raster {
	w, h := dem.Grid.Width, dem.Grid.Height
	n := w * h

	// Direction pass must fully complete before accumulation starts:
	// the descending-order traversal assumes every cell's receiver is fixed.
	flowDir := make([]int8, n)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			flowDir[row*w+col] = steepestDescent(dem, row, col)
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return dem.Cells[order[a]] > dem.Cells[order[b]]
	})

	accum := domain.NewRaster(dem.Grid)
	for i := range accum.Cells {
		accum.Cells[i] = 1
	}
	for _, idx := range order {
		d := flowDir[idx]
		if d < 0 {
			continue
		}
		row, col := idx/w, idx%w
		next := (row+d8Offsets[d][0])*w + (col + d8Offsets[d][1])
		accum.Cells[next] += accum.Cells[idx]
	}
	return accum
}

// steepestDescent returns the d8Offsets index of the neighbor with the
// largest positive elevation drop, or -1 for a local sink.
func steepestDescent(dem *domain.Raster, row, col int) int8 {
	w, h := dem.Grid.Width, dem.Grid.Height
	elev := dem.At(row, col)

	best := int8(-1)
	steepest := 0.0
	for i, off := range d8Offsets {
		nr, nc := row+off[0], col+off[1]
		if nr < 0 || nr >= h || nc < 0 || nc >= w {
			continue
		}
		drop := elev - dem.At(nr, nc)
		if drop > steepest {
			steepest = drop
			best = int8(i)
		}
	}
	return best
}

// NormalizeFlowAccumulation compresses drainage counts with log1p and
// min-max scales the result to [0, 1]. An all-equal input maps to all
// zeros rather than dividing by zero.
func NormalizeFlowAccumulation(accum *domain.Raster) *domain.Raster {
	out := domain.NewRaster(accum.Grid)

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range accum.Cells {
		lv := math.Log1p(v)
		out.Cells[i] = lv
		if lv < lo {
			lo = lv
		}
		if lv > hi {
			hi = lv
		}
	}
	if hi-lo == 0 {
		for i := range out.Cells {
			out.Cells[i] = 0
		}
		return out
	}
	for i, v := range out.Cells {
		out.Cells[i] = (v - lo) / (hi - lo)
	}
	return out
}
