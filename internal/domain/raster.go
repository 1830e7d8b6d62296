package domain

import (
	"errors"
	"math"
)

// NoData marks raster cells that carry no valid sample. Masked cells are
// excluded from statistics and never compared against thresholds.
const NoData = -9999.0

// ErrGridMismatch is returned when two rasters that must share the same
// grid shape and bounds do not.
var ErrGridMismatch = errors.New("raster grids do not match")

// metersPerDegree is the approximate ground length of one degree of
// latitude (and of longitude at the equator) in WGS-84.
const metersPerDegree = 111_320.0

// Grid describes the georeferencing of a raster: a WGS-84 bounding box in
// degrees, pixel dimensions, and the target ground cell size the
// dimensions were derived from.
type Grid struct {
	West, South, East, North float64
	Width, Height            int
	CellSizeM                float64
}

// NewGrid derives pixel dimensions from a bounding box and a target cell
// size in metres. Longitude degrees-per-cell are widened by the cosine of
// the mid-latitude: a degree of longitude shrinks away from the equator.
func NewGrid(west, south, east, north, cellSizeM float64) Grid {
	midLat := (south + north) / 2
	degPerCellLon := cellSizeM / (metersPerDegree * math.Cos(midLat*math.Pi/180))
	degPerCellLat := cellSizeM / metersPerDegree

	width := int((east - west) / degPerCellLon)
	height := int((north - south) / degPerCellLat)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return Grid{
		West: west, South: south, East: east, North: north,
		Width: width, Height: height,
		CellSizeM: cellSizeM,
	}
}

// CellDegrees returns the actual per-cell extent in degrees of longitude
// and latitude. These can differ slightly from the requested cell size
// because pixel dimensions are truncated to whole cells.
func (g Grid) CellDegrees() (dLon, dLat float64) {
	return (g.East - g.West) / float64(g.Width), (g.North - g.South) / float64(g.Height)
}

// Index maps a coordinate to the nearest raster cell by inverting the
// grid's affine transform and rounding. Row 0 is the northern edge.
// ok is false when the coordinate falls outside the grid.
func (g Grid) Index(lon, lat float64) (row, col int, ok bool) {
	dLon, dLat := g.CellDegrees()
	col = int(math.Round((lon-g.West)/dLon - 0.5))
	row = int(math.Round((g.North-lat)/dLat - 0.5))
	if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
		return 0, 0, false
	}
	return row, col, true
}

// CellCenter returns the coordinate of a cell's center.
func (g Grid) CellCenter(row, col int) (lon, lat float64) {
	dLon, dLat := g.CellDegrees()
	return g.West + (float64(col)+0.5)*dLon, g.North - (float64(row)+0.5)*dLat
}

// PixelAreaM2 returns the ground area of one cell in square metres,
// using the metre length of a degree at the grid's mid-latitude.
func (g Grid) PixelAreaM2() float64 {
	dLon, dLat := g.CellDegrees()
	midLat := (g.South + g.North) / 2
	wM := dLon * metersPerDegree * math.Cos(midLat*math.Pi/180)
	hM := dLat * metersPerDegree
	return wM * hM
}

// Raster is a row-major 2D grid of float64 samples with georeferencing.
type Raster struct {
	Grid  Grid
	Cells []float64
}

// NewRaster allocates a zero-filled raster on the given grid.
func NewRaster(g Grid) *Raster {
	return &Raster{Grid: g, Cells: make([]float64, g.Width*g.Height)}
}

// At returns the sample at (row, col). The caller is responsible for
// bounds; use Grid.Index for coordinate lookups.
func (r *Raster) At(row, col int) float64 {
	return r.Cells[row*r.Grid.Width+col]
}

// Set stores a sample at (row, col).
func (r *Raster) Set(row, col int, v float64) {
	r.Cells[row*r.Grid.Width+col] = v
}

// Sample returns the value at the cell nearest the coordinate, or 0.0
// when the coordinate is out of bounds or the cell holds no data.
func (r *Raster) Sample(lon, lat float64) float64 {
	row, col, ok := r.Grid.Index(lon, lat)
	if !ok {
		return 0.0
	}
	v := r.At(row, col)
	if v == NoData {
		return 0.0
	}
	return v
}

// SameGrid reports whether two rasters share shape and bounds.
func (r *Raster) SameGrid(o *Raster) bool {
	return r.Grid == o.Grid
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	c := NewRaster(r.Grid)
	copy(c.Cells, r.Cells)
	return c
}
