package lightgbm

import (
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations" yaml:"num_iterations"`
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`
	NumLeaves     int     `json:"num_leaves" yaml:"num_leaves"`
	MaxDepth      int     `json:"max_depth" yaml:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf" yaml:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2" yaml:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split" yaml:"min_gain_to_split"`

	// Sampling
	FeatureFraction float64 `json:"feature_fraction" yaml:"feature_fraction"`

	// Objective
	Objective string `json:"objective" yaml:"objective"`
	NumClass  int    `json:"num_class" yaml:"num_class"`

	// Categorical features
	CategoricalFeatures []int `json:"categorical_features" yaml:"categorical_features"`

	// Other
	Seed      uint64 `json:"seed" yaml:"seed"`
	Verbosity int    `json:"verbosity" yaml:"verbosity"`
}

// DefaultTrainingParams returns the parameters used when a field is left zero.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:   100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinDataInLeaf:   20,
		FeatureFraction: 1.0,
		Objective:       string(RegressionL2),
		NumClass:        1,
	}
}

// withDefaults fills zero-valued fields from DefaultTrainingParams.
func (p TrainingParams) withDefaults() TrainingParams {
	d := DefaultTrainingParams()
	if p.NumIterations == 0 {
		p.NumIterations = d.NumIterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.NumLeaves == 0 {
		p.NumLeaves = d.NumLeaves
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = d.MinDataInLeaf
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = d.FeatureFraction
	}
	if p.Objective == "" {
		p.Objective = d.Objective
	}
	if p.NumClass == 0 {
		p.NumClass = d.NumClass
	}
	return p
}

// Validate checks parameter ranges.
func (p TrainingParams) Validate() error {
	if p.NumIterations < 0 {
		return errors.NewValidationError("num_iterations", "must be non-negative", p.NumIterations)
	}
	if p.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	}
	if p.NumLeaves < 2 {
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	}
	if p.MinDataInLeaf < 1 {
		return errors.NewValidationError("min_data_in_leaf", "must be at least 1", p.MinDataInLeaf)
	}
	if p.Lambda < 0 {
		return errors.NewValidationError("lambda_l2", "must be non-negative", p.Lambda)
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	}
	switch ObjectiveType(p.Objective) {
	case RegressionL2:
	case MulticlassSoftmax:
		if p.NumClass < 2 {
			return errors.NewValidationError("num_class", "multiclass objective needs at least 2 classes", p.NumClass)
		}
	default:
		return errors.NewValidationError("objective", "unsupported objective", p.Objective)
	}
	return nil
}

// featureSampler picks the feature subset examined for each tree.
type featureSampler struct {
	rng      *rand.Rand
	fraction float64
}

func newFeatureSampler(params TrainingParams) *featureSampler {
	return &featureSampler{
		rng:      rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15)),
		fraction: params.FeatureFraction,
	}
}

// sample returns the feature indices to use, in increasing order.
func (s *featureSampler) sample(numFeatures int) []int {
	features := make([]int, numFeatures)
	for i := range features {
		features[i] = i
	}
	if s.fraction >= 1.0 {
		return features
	}

	numSample := int(float64(numFeatures) * s.fraction)
	if numSample < 1 {
		numSample = 1
	}

	// Fisher-Yates on a prefix
	for i := 0; i < numSample; i++ {
		j := i + s.rng.IntN(numFeatures-i)
		features[i], features[j] = features[j], features[i]
	}
	picked := features[:numSample]
	slices.Sort(picked)
	return picked
}
