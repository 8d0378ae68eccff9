package model

import (
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// WeightedMember is one predictor of a WeightedEnsemble and its weight.
type WeightedMember struct {
	Model  Predictor
	Weight float64
}

// WeightedEnsemble sums the weighted outputs of an ordered list of predictors.
// Members are never reweighted after they are added, so appending a new model with
// weight alpha is the additive boosting update prev*1 + new*alpha.
type WeightedEnsemble struct {
	members []WeightedMember
}

// NewWeightedEnsemble creates an ensemble from members in order.
func NewWeightedEnsemble(members ...WeightedMember) *WeightedEnsemble {
	e := &WeightedEnsemble{}
	e.members = append(e.members, members...)
	return e
}

// Add appends a predictor with the given weight.
func (e *WeightedEnsemble) Add(m Predictor, weight float64) {
	e.members = append(e.members, WeightedMember{Model: m, Weight: weight})
}

// Len returns the number of members.
func (e *WeightedEnsemble) Len() int {
	return len(e.members)
}

// Members returns a copy of the members in insertion order.
func (e *WeightedEnsemble) Members() []WeightedMember {
	out := make([]WeightedMember, len(e.members))
	copy(out, e.members)
	return out
}

// Predict returns Σ weight_i * member_i(X). All members must produce outputs of the
// same shape.
func (e *WeightedEnsemble) Predict(X mat.Matrix) (mat.Matrix, error) {
	if len(e.members) == 0 {
		return nil, errors.NewNotFittedError("WeightedEnsemble", "Predict")
	}

	var sum *mat.Dense
	for i, m := range e.members {
		pred, err := m.Model.Predict(X)
		if err != nil {
			return nil, errors.Wrapf(err, "ensemble member %d", i)
		}
		r, c := pred.Dims()
		if sum == nil {
			sum = mat.NewDense(r, c, nil)
		} else if sr, sc := sum.Dims(); sr != r || sc != c {
			if sr != r {
				return nil, errors.NewDimensionError("WeightedEnsemble.Predict", sr, r, 0)
			}
			return nil, errors.NewDimensionError("WeightedEnsemble.Predict", sc, c, 1)
		}
		if m.Weight == 0 {
			continue
		}
		var scaled mat.Dense
		scaled.Scale(m.Weight, pred)
		sum.Add(sum, &scaled)
	}
	return sum, nil
}
