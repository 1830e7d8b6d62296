// Package hydrology derives hydrological risk factors from raw terrain
// and water data: river proximity from water-feature geometries and flow
// accumulation from an elevation grid.
package hydrology

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// GridFromBound derives the analysis grid covering a geographic bound.
func GridFromBound(b orb.Bound, cellSizeM float64) domain.Grid {
	return domain.NewGrid(b.Min[0], b.Min[1], b.Max[0], b.Max[1], cellSizeM)
}

// RiverProximity rasterizes water features onto the grid and computes an
// inverted, normalized Euclidean distance to the nearest water cell:
// 1.0 at water, decaying outward, 0.0 at the most distant cell.
//
// With no water features the factor and the mask are all zeros. That is
// a graceful degradation, not an error: the area simply has no mapped
// water to be near.
func RiverProximity(features []orb.Geometry, grid domain.Grid) (factor, mask *domain.Raster) {
	mask = Rasterize(features, grid)

	waterCells := 0
	for _, v := range mask.Cells {
		if v > 0 {
			waterCells++
		}
	}

	factor = domain.NewRaster(grid)
	if waterCells == 0 {
		return factor, mask
	}

	dist := distanceTransform(mask)
	maxDist := 0.0
	for _, d := range dist {
		if d > maxDist {
			maxDist = d
		}
	}
	if maxDist == 0 {
		// Every cell is water.
		for i := range factor.Cells {
			factor.Cells[i] = 1.0
		}
		return factor, mask
	}
	for i, d := range dist {
		factor.Cells[i] = 1.0 - d/maxDist
	}
	return factor, mask
}

// Rasterize burns water-feature geometries onto a binary raster: 1 where
// water exists, 0 elsewhere. Lines mark every cell they pass through;
// polygons are filled by even-odd scanline plus their outline.
func Rasterize(features []orb.Geometry, grid domain.Grid) *domain.Raster {
	mask := domain.NewRaster(grid)
	for _, g := range features {
		burnGeometry(mask, g)
	}
	return mask
}

func burnGeometry(mask *domain.Raster, g orb.Geometry) {
	switch geom := g.(type) {
	case orb.Point:
		burnPoint(mask, geom)
	case orb.MultiPoint:
		for _, p := range geom {
			burnPoint(mask, p)
		}
	case orb.LineString:
		burnLine(mask, geom)
	case orb.MultiLineString:
		for _, ls := range geom {
			burnLine(mask, ls)
		}
	case orb.Ring:
		burnLine(mask, orb.LineString(geom))
	case orb.Polygon:
		burnPolygon(mask, geom)
	case orb.MultiPolygon:
		for _, poly := range geom {
			burnPolygon(mask, poly)
		}
	case orb.Collection:
		for _, sub := range geom {
			burnGeometry(mask, sub)
		}
	}
}

func burnPoint(mask *domain.Raster, p orb.Point) {
	if row, col, ok := mask.Grid.Index(p.Lon(), p.Lat()); ok {
		mask.Set(row, col, 1)
	}
}

// burnLine walks each segment in steps of half a cell so no crossed cell
// is skipped.
func burnLine(mask *domain.Raster, ls orb.LineString) {
	dLon, dLat := mask.Grid.CellDegrees()
	step := math.Min(dLon, dLat) / 2

	for i := 1; i < len(ls); i++ {
		a, b := ls[i-1], ls[i]
		burnPoint(mask, a)

		length := math.Hypot(b.Lon()-a.Lon(), b.Lat()-a.Lat())
		steps := int(math.Ceil(length / step))
		for s := 1; s <= steps; s++ {
			f := float64(s) / float64(steps)
			burnPoint(mask, orb.Point{a.Lon() + f*(b.Lon()-a.Lon()), a.Lat() + f*(b.Lat()-a.Lat())})
		}
	}
}

// burnPolygon fills the outer ring minus holes with even-odd scanlines
// across cell-center latitudes, then burns the ring outlines so thin
// polygons are never lost to sampling.
func burnPolygon(mask *domain.Raster, poly orb.Polygon) {
	grid := mask.Grid
	for row := 0; row < grid.Height; row++ {
		_, lat := grid.CellCenter(row, 0)

		var crossings []float64
		for _, ring := range poly {
			crossings = append(crossings, ringCrossings(ring, lat)...)
		}
		if len(crossings) < 2 {
			continue
		}
		sortFloats(crossings)

		for i := 0; i+1 < len(crossings); i += 2 {
			fillSpan(mask, row, crossings[i], crossings[i+1])
		}
	}
	for _, ring := range poly {
		burnLine(mask, orb.LineString(ring))
	}
}

// ringCrossings returns the longitudes where a ring's edges cross the
// horizontal line at lat, using the half-open rule so vertices are not
// double counted.
func ringCrossings(ring orb.Ring, lat float64) []float64 {
	var xs []float64
	for i := 1; i < len(ring); i++ {
		a, b := ring[i-1], ring[i]
		aLat, bLat := a.Lat(), b.Lat()
		if (aLat <= lat) == (bLat <= lat) {
			continue
		}
		f := (lat - aLat) / (bLat - aLat)
		xs = append(xs, a.Lon()+f*(b.Lon()-a.Lon()))
	}
	return xs
}

func fillSpan(mask *domain.Raster, row int, lonStart, lonEnd float64) {
	grid := mask.Grid
	dLon, _ := grid.CellDegrees()

	startCol := int(math.Ceil((lonStart-grid.West)/dLon - 0.5))
	endCol := int(math.Floor((lonEnd-grid.West)/dLon - 0.5))
	if startCol < 0 {
		startCol = 0
	}
	if endCol >= grid.Width {
		endCol = grid.Width - 1
	}
	for col := startCol; col <= endCol; col++ {
		mask.Set(row, col, 1)
	}
}

func sortFloats(xs []float64) {
	// Insertion sort: crossing lists are tiny (one pair per ring edge pair).
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// distanceTransform computes the exact Euclidean distance (in cell units)
// from every cell to the nearest water cell, via the two-pass squared
// distance transform of Felzenszwalb & Huttenlocher applied per
// dimension.
func distanceTransform(mask *domain.Raster) []float64 {
	w, h := mask.Grid.Width, mask.Grid.Height
	sq := make([]float64, w*h)
	for i, v := range mask.Cells {
		if v > 0 {
			sq[i] = 0
		} else {
			sq[i] = math.Inf(1)
		}
	}

	// Columns first, then rows.
	col := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = sq[y*w+x]
		}
		for y, d := range dt1d(col) {
			sq[y*w+x] = d
		}
	}
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, sq[y*w:(y+1)*w])
		for x, d := range dt1d(row) {
			sq[y*w+x] = d
		}
	}

	for i, d := range sq {
		sq[i] = math.Sqrt(d)
	}
	return sq
}

// dt1d is the 1D squared-distance transform over a sampled function f.
// It maintains the lower envelope of the parabolas rooted at each sample.
func dt1d(f []float64) []float64 {
	n := len(f)
	d := make([]float64, n)
	v := make([]int, n)       // parabola roots
	z := make([]float64, n+1) // envelope boundaries

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		if math.IsInf(f[q], 1) {
			continue
		}
		s := intersect(f, q, v[k])
		for k > 0 && s <= z[k] {
			k--
			s = intersect(f, q, v[k])
		}
		if math.IsInf(f[v[k]], 1) {
			// Envelope so far held only unreachable parabolas.
			v[k] = q
			z[k+1] = math.Inf(1)
			continue
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		if math.IsInf(f[v[k]], 1) {
			d[q] = math.Inf(1)
			continue
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
	return d
}

func intersect(f []float64, q, p int) float64 {
	return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q-2*p)
}
