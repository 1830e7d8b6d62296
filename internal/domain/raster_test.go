package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_Dimensions(t *testing.T) {
	// 0.1 x 0.1 degree box at the equator with 1113.2m cells:
	// one degree is ~111,320m, so 0.1 degrees is ~10 cells each way.
	g := NewGrid(0, 0, 0.1, 0.1, 1113.2)

	assert.Equal(t, 10, g.Width)
	assert.Equal(t, 10, g.Height)
}

func TestNewGrid_LonAdjustedByLatitude(t *testing.T) {
	// At 60 degrees north cos(lat) = 0.5, so a degree of longitude covers
	// half the ground distance and the box needs half the columns.
	equator := NewGrid(0, -0.05, 0.1, 0.05, 1113.2)
	north := NewGrid(0, 59.95, 0.1, 60.05, 1113.2)

	assert.Equal(t, equator.Height, north.Height)
	assert.Equal(t, equator.Width/2, north.Width)
}

func TestNewGrid_MinimumOneCell(t *testing.T) {
	g := NewGrid(0, 0, 0.0001, 0.0001, 5000)

	assert.Equal(t, 1, g.Width)
	assert.Equal(t, 1, g.Height)
}

func TestGrid_IndexRoundTrip(t *testing.T) {
	g := NewGrid(10, 40, 10.1, 40.1, 500)

	for _, tc := range []struct{ row, col int }{
		{0, 0},
		{g.Height - 1, g.Width - 1},
		{g.Height / 2, g.Width / 2},
	} {
		lon, lat := g.CellCenter(tc.row, tc.col)
		row, col, ok := g.Index(lon, lat)
		require.True(t, ok)
		assert.Equal(t, tc.row, row)
		assert.Equal(t, tc.col, col)
	}
}

func TestGrid_IndexOutOfBounds(t *testing.T) {
	g := NewGrid(10, 40, 10.1, 40.1, 500)

	_, _, ok := g.Index(9.9, 40.05)
	assert.False(t, ok)
	_, _, ok = g.Index(10.05, 41.0)
	assert.False(t, ok)
}

func TestGrid_PixelAreaM2(t *testing.T) {
	g := NewGrid(0, 0, 0.1, 0.1, 1113.2)

	// Cells were sized to ~1113.2m at the equator.
	area := g.PixelAreaM2()
	assert.InDelta(t, 1113.2*1113.2, area, 1113.2*1113.2*0.01)
}

func TestRaster_SampleDefaultsToZero(t *testing.T) {
	r := NewRaster(NewGrid(0, 0, 0.1, 0.1, 1113.2))
	r.Set(0, 0, 0.8)
	r.Set(1, 1, NoData)

	lon, lat := r.Grid.CellCenter(0, 0)
	assert.InDelta(t, 0.8, r.Sample(lon, lat), 1e-12)

	// NoData cells sample as zero risk.
	lon, lat = r.Grid.CellCenter(1, 1)
	assert.Zero(t, r.Sample(lon, lat))

	// Out-of-bounds coordinates sample as zero risk.
	assert.Zero(t, r.Sample(-5, -5))
}

func TestRaster_CloneIsIndependent(t *testing.T) {
	r := NewRaster(NewGrid(0, 0, 0.1, 0.1, 1113.2))
	r.Set(2, 3, 0.5)

	c := r.Clone()
	c.Set(2, 3, 0.9)

	assert.InDelta(t, 0.5, r.At(2, 3), 1e-12)
	assert.InDelta(t, 0.9, c.At(2, 3), 1e-12)
	assert.True(t, r.SameGrid(c))
}

func TestRaster_SameGrid(t *testing.T) {
	a := NewRaster(NewGrid(0, 0, 0.1, 0.1, 1113.2))
	b := NewRaster(NewGrid(0, 0, 0.1, 0.1, 1113.2))
	c := NewRaster(NewGrid(0, 0, 0.2, 0.2, 1113.2))

	assert.True(t, a.SameGrid(b))
	assert.False(t, a.SameGrid(c))
}

func TestGrid_CellDegrees(t *testing.T) {
	g := NewGrid(10, 40, 10.1, 40.1, 500)
	dLon, dLat := g.CellDegrees()

	assert.InDelta(t, 0.1, dLon*float64(g.Width), 1e-9)
	assert.InDelta(t, 0.1, dLat*float64(g.Height), 1e-9)
	assert.False(t, math.IsNaN(dLon))
}
