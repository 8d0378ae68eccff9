package metrics

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy returns the fraction of rows where yPred equals yTrue. Both are n × 1
// label columns.
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	rows, _, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if yTrue.At(i, 0) == yPred.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// ArgMax returns an n × 1 column with the index of the largest value in each row.
// Ties go to the lowest index.
func ArgMax(scores mat.Matrix) *mat.Dense {
	rows, cols := scores.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if scores.At(i, j) > scores.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(best))
	}
	return out
}

// AccuracyFromLogits scores the arg-max of each logits row against labels.
func AccuracyFromLogits(labels, logits mat.Matrix) (float64, error) {
	if labels == nil || logits == nil {
		return 0, errors.NewValueError("AccuracyFromLogits", "nil input")
	}
	return Accuracy(labels, ArgMax(logits))
}

// CrossEntropy returns the mean softmax cross-entropy of logits (n × k) against
// integer class labels (n × 1).
func CrossEntropy(labels, logits mat.Matrix) (float64, error) {
	if labels == nil || logits == nil {
		return 0, errors.NewValueError("CrossEntropy", "nil input")
	}
	rows, _ := labels.Dims()
	lRows, k := logits.Dims()
	if rows == 0 || k == 0 {
		return 0, errors.NewValueError("CrossEntropy", "empty input")
	}
	if rows != lRows {
		return 0, errors.NewDimensionError("CrossEntropy", rows, lRows, 0)
	}

	row := make([]float64, k)
	total := 0.0
	for i := 0; i < rows; i++ {
		label := labels.At(i, 0)
		if label != math.Trunc(label) || label < 0 || int(label) >= k {
			return 0, errors.NewValueError("CrossEntropy", "label outside [0, num_classes)")
		}
		mat.Row(row, i, logits)
		total += errors.LogSumExp(row) - row[int(label)]
	}
	return total / float64(rows), nil
}
