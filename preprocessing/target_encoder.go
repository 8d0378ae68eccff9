package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TargetEncoder replaces categorical values with ordered target statistics.
//
// While fitting, the encoding of a training row only uses the targets of earlier
// training rows of the same category:
//
//	(sum of earlier targets + prior*Smoothing) / (count of earlier rows + Smoothing)
//
// where prior is the mean training target. Rows encoded after fitting use the
// statistics of every training row. Unseen and missing categories map to prior.
type TargetEncoder struct {
	model.BaseEstimator

	// Columns lists the categorical columns to encode.
	Columns []int

	// Smoothing is the weight of the prior, 1 when zero.
	Smoothing float64

	Prior float64

	stats []map[float64]categoryStat
}

type categoryStat struct {
	sum   float64
	count float64
}

// NewTargetEncoder creates an encoder for the given columns.
func NewTargetEncoder(columns []int) *TargetEncoder {
	return &TargetEncoder{Columns: columns, Smoothing: 1}
}

func (e *TargetEncoder) smoothing() float64 {
	if e.Smoothing <= 0 {
		return 1
	}
	return e.Smoothing
}

// FitTransform fits the encoder on X and y (n × 1) and returns X with the
// categorical columns replaced by their ordered encoding.
func (e *TargetEncoder) FitTransform(X, y mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TargetEncoder.FitTransform")
	}
	if yr, _ := y.Dims(); yr != r {
		return nil, errors.NewDimensionError("TargetEncoder.FitTransform", r, yr, 0)
	}
	for _, col := range e.Columns {
		if col < 0 || col >= c {
			return nil, errors.NewValidationError("columns", "column index out of range", col)
		}
	}

	prior := 0.0
	for i := 0; i < r; i++ {
		prior += y.At(i, 0)
	}
	prior /= float64(r)
	e.Prior = prior

	a := e.smoothing()
	out := mat.DenseCopyOf(X)
	e.stats = make([]map[float64]categoryStat, len(e.Columns))
	for k, col := range e.Columns {
		stats := make(map[float64]categoryStat)
		for i := 0; i < r; i++ {
			v := X.At(i, col)
			if math.IsNaN(v) {
				out.Set(i, col, prior)
				continue
			}
			s := stats[v]
			out.Set(i, col, (s.sum+prior*a)/(s.count+a))
			s.sum += y.At(i, 0)
			s.count++
			stats[v] = s
		}
		e.stats[k] = stats
	}

	e.SetFitted()
	return out, nil
}

// Transform encodes X with the full training statistics.
func (e *TargetEncoder) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := e.RequireFitted("TargetEncoder", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	a := e.smoothing()
	out := mat.DenseCopyOf(X)
	for k, col := range e.Columns {
		if col >= c {
			return nil, errors.NewDimensionError("TargetEncoder.Transform", col+1, c, 1)
		}
		for i := 0; i < r; i++ {
			v := X.At(i, col)
			s, ok := e.stats[k][v]
			if math.IsNaN(v) || !ok {
				out.Set(i, col, e.Prior)
				continue
			}
			out.Set(i, col, (s.sum+e.Prior*a)/(s.count+a))
		}
	}
	return out, nil
}

// EncodeCategorical fits a TargetEncoder on the train rows of X and encodes the
// categorical columns of the train rows and every row listed in apply. The
// encoder uses the first column of y.
func EncodeCategorical(X, y mat.Matrix, columns, train []int, apply ...[]int) (*mat.Dense, error) {
	if len(columns) == 0 {
		return mat.DenseCopyOf(X), nil
	}
	trainX, err := SelectRows(X, train)
	if err != nil {
		return nil, err
	}
	trainY, err := SelectRows(y, train)
	if err != nil {
		return nil, err
	}

	enc := NewTargetEncoder(columns)
	encodedTrain, err := enc.FitTransform(trainX, trainY)
	if err != nil {
		return nil, err
	}

	out := mat.DenseCopyOf(X)
	for k, i := range train {
		out.SetRow(i, encodedTrain.RawRowView(k))
	}

	var rest []int
	for _, a := range apply {
		rest = append(rest, a...)
	}
	if len(rest) == 0 {
		return out, nil
	}
	restX, err := SelectRows(X, rest)
	if err != nil {
		return nil, err
	}
	encodedRest, err := enc.Transform(restX)
	if err != nil {
		return nil, err
	}
	for k, i := range rest {
		out.SetRow(i, encodedRest.RawRowView(k))
	}
	return out, nil
}
