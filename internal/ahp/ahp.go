// Package ahp derives multi-criteria factor weights from a pairwise
// comparison matrix (Saaty's Analytic Hierarchy Process) and judges the
// matrix's coherence through its Consistency Ratio.
package ahp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInconsistent indicates a pairwise matrix whose Consistency Ratio is
// at or above 0.1. Weights derived from such a matrix must not be used.
var ErrInconsistent = errors.New("ahp: pairwise matrix is inconsistent")

// consistencyLimit is Saaty's accepted upper bound on the Consistency Ratio.
const consistencyLimit = 0.1

// riTable holds the Random Index for matrices of size 1..10 (Saaty, 1980).
// Sizes beyond 10 fall back to the n=10 value.
var riTable = [...]float64{0, 0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49}

// DefaultFactors are the five spatial susceptibility factors. Rainfall is
// not a factor; it scales the final risk as a multiplier.
var DefaultFactors = []string{"elevation", "slope", "soil", "river", "flow_accum"}

// DefaultMatrix returns the pairwise comparison matrix over DefaultFactors.
// River proximity is the strongest flood predictor, elevation strongly
// important, flow accumulation captures drainage convergence, slope and
// soil moderate.
func DefaultMatrix() *mat.Dense {
	return mat.NewDense(5, 5, []float64{
		//  elev  slope soil  river flow
		1, 3, 3, 1.0 / 2, 1,
		1.0 / 3, 1, 1, 1.0 / 4, 1.0 / 2,
		1.0 / 3, 1, 1, 1.0 / 4, 1.0 / 2,
		2, 4, 4, 1, 2,
		1, 2, 2, 1.0 / 2, 1,
	})
}

// Result carries the priority weights and the consistency diagnostics.
type Result struct {
	Weights    map[string]float64
	Priority   []float64 // same order as the factor names
	LambdaMax  float64
	CI         float64
	CR         float64
	Consistent bool
}

// Solve computes the AHP priority vector: each column is normalized by
// its sum and the priority of a factor is the row-wise mean of the
// normalized matrix. The consistency check compares matrix·priority
// against the priority vector itself.
func Solve(m *mat.Dense, names []string) (Result, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return Result{}, fmt.Errorf("ahp: matrix must be square, got %dx%d", rows, cols)
	}
	if rows != len(names) {
		return Result{}, fmt.Errorf("ahp: %d factor names for a %dx%d matrix", len(names), rows, cols)
	}
	n := rows
	if n < 1 {
		return Result{}, errors.New("ahp: empty matrix")
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m.At(i, j) <= 0 {
				return Result{}, fmt.Errorf("ahp: entry (%d,%d)=%g is not strictly positive", i, j, m.At(i, j))
			}
		}
	}

	// Column-normalize, then average each row into the priority vector.
	priority := make([]float64, n)
	col := make([]float64, n)
	for j := 0; j < n; j++ {
		mat.Col(col, j, m)
		sum := floats.Sum(col)
		for i := 0; i < n; i++ {
			priority[i] += m.At(i, j) / sum
		}
	}
	for i := range priority {
		priority[i] /= float64(n)
	}

	// lambda_max from the ratio of the weighted sum to the priority.
	var weighted mat.VecDense
	weighted.MulVec(m, mat.NewVecDense(n, priority))
	lambdaMax := 0.0
	for i := 0; i < n; i++ {
		lambdaMax += weighted.AtVec(i) / priority[i]
	}
	lambdaMax /= float64(n)

	ci := 0.0
	if n > 2 {
		ci = (lambdaMax - float64(n)) / (float64(n) - 1)
	}
	ri := riTable[len(riTable)-1]
	if n < len(riTable) {
		ri = riTable[n]
	}
	cr := 0.0
	if ri > 0 {
		cr = ci / ri
	}

	weights := make(map[string]float64, n)
	for i, name := range names {
		weights[name] = round4(priority[i])
	}

	return Result{
		Weights:    weights,
		Priority:   priority,
		LambdaMax:  lambdaMax,
		CI:         ci,
		CR:         cr,
		Consistent: cr < consistencyLimit,
	}, nil
}

// ValidatedWeights solves the matrix and fails with ErrInconsistent when
// the Consistency Ratio is at or above 0.1. On success the rounded
// weights are renormalized so they sum to exactly 1.0.
func ValidatedWeights(m *mat.Dense, names []string) (map[string]float64, error) {
	res, err := Solve(m, names)
	if err != nil {
		return nil, err
	}
	if !res.Consistent {
		return nil, fmt.Errorf("%w (CR=%.4f >= %.1f)", ErrInconsistent, res.CR, consistencyLimit)
	}

	total := 0.0
	for _, w := range res.Weights {
		total += w
	}
	for name, w := range res.Weights {
		res.Weights[name] = w / total
	}
	return res.Weights, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
