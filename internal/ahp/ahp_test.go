package ahp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolve_DefaultMatrix(t *testing.T) {
	res, err := Solve(DefaultMatrix(), DefaultFactors)
	require.NoError(t, err)

	assert.InDelta(t, 0.2319, res.Weights["elevation"], 1e-3)
	assert.InDelta(t, 0.0906, res.Weights["slope"], 1e-3)
	assert.InDelta(t, 0.0906, res.Weights["soil"], 1e-3)
	assert.InDelta(t, 0.3912, res.Weights["river"], 1e-3)
	assert.InDelta(t, 0.1956, res.Weights["flow_accum"], 1e-3)

	assert.InDelta(t, 0.006, res.CR, 5e-3)
	assert.True(t, res.Consistent)
	assert.Greater(t, res.LambdaMax, 5.0)
}

func TestValidatedWeights_SumToOne(t *testing.T) {
	weights, err := ValidatedWeights(DefaultMatrix(), DefaultFactors)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestValidatedWeights_InconsistentMatrix(t *testing.T) {
	// Circular preferences: a >> b, b >> c, c >> a. CR is far above 0.1.
	m := mat.NewDense(3, 3, []float64{
		1, 9, 1.0 / 9,
		1.0 / 9, 1, 9,
		9, 1.0 / 9, 1,
	})

	_, err := ValidatedWeights(m, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestSolve_SmallMatricesAlwaysConsistent(t *testing.T) {
	t.Run("n=1", func(t *testing.T) {
		res, err := Solve(mat.NewDense(1, 1, []float64{1}), []string{"only"})
		require.NoError(t, err)
		assert.Zero(t, res.CI)
		assert.Zero(t, res.CR)
		assert.True(t, res.Consistent)
		assert.InDelta(t, 1.0, res.Weights["only"], 1e-12)
	})

	t.Run("n=2", func(t *testing.T) {
		res, err := Solve(mat.NewDense(2, 2, []float64{1, 4, 0.25, 1}), []string{"a", "b"})
		require.NoError(t, err)
		assert.Zero(t, res.CI)
		assert.Zero(t, res.CR)
		assert.True(t, res.Consistent)
		assert.InDelta(t, 0.8, res.Weights["a"], 1e-3)
		assert.InDelta(t, 0.2, res.Weights["b"], 1e-3)
	})
}

func TestSolve_InvalidInput(t *testing.T) {
	t.Run("non-square", func(t *testing.T) {
		_, err := Solve(mat.NewDense(2, 3, nil), []string{"a", "b"})
		assert.Error(t, err)
	})

	t.Run("name count mismatch", func(t *testing.T) {
		_, err := Solve(mat.NewDense(2, 2, []float64{1, 2, 0.5, 1}), []string{"a"})
		assert.Error(t, err)
	})

	t.Run("non-positive entry", func(t *testing.T) {
		_, err := Solve(mat.NewDense(2, 2, []float64{1, 0, 0.5, 1}), []string{"a", "b"})
		assert.Error(t, err)
	})
}
