package bgnn

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LossFunc computes the training loss of the network outputs on the train rows
// and its gradient with respect to pred. For classification target holds class
// indices in one column.
type LossFunc func(pred, target *mat.Dense) (loss float64, grad *mat.Dense, err error)

// RMSELoss is the square root of the mean squared error over all entries.
func RMSELoss(pred, target *mat.Dense) (float64, *mat.Dense, error) {
	r, c := pred.Dims()
	if tr, tc := target.Dims(); tr != r || tc != c {
		if tr != r {
			return 0, nil, errors.NewDimensionError("RMSELoss", r, tr, 0)
		}
		return 0, nil, errors.NewDimensionError("RMSELoss", c, tc, 1)
	}
	if r == 0 {
		return 0, nil, errors.Wrap(errors.ErrEmptyData, "RMSELoss")
	}

	diff := mat.NewDense(r, c, nil)
	diff.Sub(pred, target)
	n := float64(r * c)
	mse := 0.0
	for i := 0; i < r; i++ {
		row := diff.RawRowView(i)
		mse += floats.Dot(row, row)
	}
	mse /= n
	loss := math.Sqrt(mse)

	// zero gradient at a perfect fit
	diff.Scale(errors.SafeDivide(1, n*loss), diff)
	return loss, diff, nil
}

// CrossEntropyLoss is the mean softmax cross-entropy of the logits in pred.
func CrossEntropyLoss(pred, target *mat.Dense) (float64, *mat.Dense, error) {
	r, c := pred.Dims()
	if tr, _ := target.Dims(); tr != r {
		return 0, nil, errors.NewDimensionError("CrossEntropyLoss", r, tr, 0)
	}
	if r == 0 {
		return 0, nil, errors.Wrap(errors.ErrEmptyData, "CrossEntropyLoss")
	}

	grad := mat.NewDense(r, c, nil)
	total := 0.0
	for i := 0; i < r; i++ {
		label := int(target.At(i, 0))
		if label < 0 || label >= c {
			return 0, nil, errors.NewValidationError("target", "class index out of range", target.At(i, 0))
		}
		logits := pred.RawRowView(i)
		lse := errors.LogSumExp(logits)
		total += lse - logits[label]

		g := grad.RawRowView(i)
		for j, z := range logits {
			g[j] = math.Exp(z - lse)
		}
		g[label]--
	}
	grad.Scale(1/float64(r), grad)
	return total / float64(r), grad, nil
}

func defaultLoss(task Task) (LossFunc, error) {
	switch task {
	case TaskRegression:
		return RMSELoss, nil
	case TaskClassification:
		return CrossEntropyLoss, nil
	default:
		return nil, errors.NewUnknownTaskError("defaultLoss", string(task))
	}
}
