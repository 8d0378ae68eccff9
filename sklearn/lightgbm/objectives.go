package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
)

// ObjectiveFunction computes first and second order gradients for boosting.
//
// Scores and gradients are laid out row-major with NumOutputs values per sample,
// so a single-output objective uses one slot per row and the softmax objective
// uses one slot per class.
type ObjectiveFunction interface {
	// NumOutputs returns the number of raw scores per sample.
	NumOutputs() int

	// InitScores returns the starting raw score for each output.
	InitScores(targets []float64) []float64

	// Gradients fills grad and hess from the current scores.
	Gradients(scores, targets, grad, hess []float64)

	// Loss returns the mean loss of the current scores.
	Loss(scores, targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// L2Objective implements L2 (Mean Squared Error) loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) NumOutputs() int { return 1 }

func (o *L2Objective) InitScores(targets []float64) []float64 {
	if len(targets) == 0 {
		return []float64{0}
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return []float64{sum / float64(len(targets))}
}

func (o *L2Objective) Gradients(scores, targets, grad, hess []float64) {
	for i, t := range targets {
		grad[i] = scores[i] - t
		hess[i] = 1.0
	}
}

func (o *L2Objective) Loss(scores, targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	loss := 0.0
	for i, t := range targets {
		diff := scores[i] - t
		loss += 0.5 * diff * diff
	}
	return loss / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return string(RegressionL2)
}

// MulticlassSoftmaxObjective implements multiclass cross-entropy loss with softmax.
// Targets hold the class index of each sample.
type MulticlassSoftmaxObjective struct {
	numClasses int
}

func NewMulticlassSoftmax(numClasses int) *MulticlassSoftmaxObjective {
	return &MulticlassSoftmaxObjective{numClasses: numClasses}
}

func (m *MulticlassSoftmaxObjective) NumOutputs() int { return m.numClasses }

// InitScores starts every class at zero, i.e. a uniform distribution.
func (m *MulticlassSoftmaxObjective) InitScores(targets []float64) []float64 {
	return make([]float64, m.numClasses)
}

func (m *MulticlassSoftmaxObjective) Gradients(scores, targets, grad, hess []float64) {
	k := m.numClasses
	probs := make([]float64, k)
	for i, t := range targets {
		softmaxInto(probs, scores[i*k:(i+1)*k])
		label := int(t)
		for c := 0; c < k; c++ {
			p := probs[c]
			g := p
			if c == label {
				g = p - 1.0
			}
			// Hessian: p_k * (1 - p_k) (diagonal approximation)
			h := p * (1.0 - p)
			if h < 1e-16 {
				h = 1e-16
			}
			grad[i*k+c] = g
			hess[i*k+c] = h
		}
	}
}

func (m *MulticlassSoftmaxObjective) Loss(scores, targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	k := m.numClasses
	total := 0.0
	for i, t := range targets {
		row := scores[i*k : (i+1)*k]
		total += errors.LogSumExp(row) - row[int(t)]
	}
	return total / float64(len(targets))
}

func (m *MulticlassSoftmaxObjective) Name() string {
	return string(MulticlassSoftmax)
}

// CreateObjectiveFunction returns the objective named in params.
func CreateObjectiveFunction(params TrainingParams) (ObjectiveFunction, error) {
	switch ObjectiveType(params.Objective) {
	case RegressionL2, "":
		return NewL2Objective(), nil
	case MulticlassSoftmax:
		if params.NumClass < 2 {
			return nil, errors.NewValidationError("num_class", "multiclass objective needs at least 2 classes", params.NumClass)
		}
		return NewMulticlassSoftmax(params.NumClass), nil
	default:
		return nil, errors.NewValidationError("objective", "unsupported objective", params.Objective)
	}
}

// softmaxInto writes softmax(logits) into dst.
func softmaxInto(dst, logits []float64) {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for i, v := range logits {
		dst[i] = math.Exp(v - maxVal)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}
