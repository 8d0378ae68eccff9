package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ReplaceNA returns a copy of X where every missing (NaN) value is replaced by the
// minimum of its column over the train rows minus one. A column with no observed
// training value is filled with -1. If X has no missing value it is copied as is.
func ReplaceNA(X mat.Matrix, train []int) (*mat.Dense, error) {
	out := mat.DenseCopyOf(X)
	r, c := out.Dims()
	if !hasNaN(out) {
		return out, nil
	}
	if len(train) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReplaceNA: train rows")
	}

	fill := make([]float64, c)
	for j := 0; j < c; j++ {
		lo := math.Inf(1)
		for _, i := range train {
			if i < 0 || i >= r {
				return nil, errors.NewValidationError("train", "row index out of range", i)
			}
			if v := out.At(i, j); !math.IsNaN(v) && v < lo {
				lo = v
			}
		}
		if math.IsInf(lo, 1) {
			lo = 0
		}
		fill[j] = lo - 1
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, fill[j])
			}
		}
	}
	return out, nil
}

func hasNaN(m *mat.Dense) bool {
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}
