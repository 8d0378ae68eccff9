package bgnn

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// convergenceTolerance bounds the residual targets below which the network no
// longer moves the prediction columns.
const convergenceTolerance = 1e-8

// residualTargets returns (after - before) restricted to the train rows and the
// trailing outDim columns. These are the regression targets of the next tree
// increment.
func residualTargets(after, before *mat.Dense, train []int, outDim int) (*mat.Dense, error) {
	ar, ac := after.Dims()
	br, bc := before.Dims()
	if ar != br || ac != bc {
		return nil, errors.NewDimensionError("residualTargets", ac, bc, 1)
	}
	if outDim <= 0 || outDim > ac {
		return nil, errors.NewValidationError("outDim", "must be in [1, feature columns]", outDim)
	}

	out := mat.NewDense(len(train), outDim, nil)
	offset := ac - outDim
	for k, i := range train {
		if i < 0 || i >= ar {
			return nil, errors.NewValidationError("train", "row index out of range", i)
		}
		a := after.RawRowView(i)[offset:]
		b := before.RawRowView(i)[offset:]
		row := out.RawRowView(k)
		for j := range row {
			row[j] = a[j] - b[j]
		}
	}
	return out, nil
}

// converged reports whether every residual is within convergenceTolerance of zero.
func converged(residuals mat.Matrix) bool {
	r, c := residuals.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(residuals.At(i, j)) > convergenceTolerance {
				return false
			}
		}
	}
	return true
}
