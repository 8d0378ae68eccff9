package bgnn

import (
	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/sklearn/lightgbm"
	"gonum.org/v1/gonum/mat"
)

// TreeConfig describes one tree increment.
type TreeConfig struct {
	Trees               int
	Depth               int
	LearningRate        float64
	Seed                uint64
	CategoricalFeatures []int
}

// Booster fits gradient boosted tree models.
type Booster interface {
	// FitRegressor fits a squared error model with one output per column of Y.
	FitRegressor(X, Y mat.Matrix, cfg TreeConfig) (model.Predictor, error)

	// FitClassifier fits a softmax classifier on class indices y (n × 1).
	FitClassifier(X, y mat.Matrix, numClass int, cfg TreeConfig) (model.ProbabilisticClassifier, error)
}

// LightGBMBooster fits models with the in-module LightGBM trainer. Trees are
// grown depth first to at most 2^Depth leaves, which gives the same capacity as
// a symmetric tree of that depth.
type LightGBMBooster struct {
	// MinChildSamples is the minimum number of rows in a leaf, 1 when zero.
	MinChildSamples int

	// RegLambda is the L2 regularization of leaf values.
	RegLambda float64

	// MaxParallel bounds concurrent output column fits.
	MaxParallel int
}

// NewLightGBMBooster returns the default booster.
func NewLightGBMBooster() *LightGBMBooster {
	return &LightGBMBooster{MinChildSamples: 1, RegLambda: 3}
}

func (b *LightGBMBooster) hyperparameters(cfg TreeConfig) lightgbm.Hyperparameters {
	h := lightgbm.DefaultHyperparameters()
	h.NumIterations = cfg.Trees
	h.MaxDepth = cfg.Depth
	h.NumLeaves = 1 << cfg.Depth
	h.LearningRate = cfg.LearningRate
	h.MinChildSamples = max(b.MinChildSamples, 1)
	h.RegLambda = b.RegLambda
	h.RandomState = cfg.Seed
	h.CategoricalFeatures = cfg.CategoricalFeatures
	return h
}

// FitRegressor implements Booster.
func (b *LightGBMBooster) FitRegressor(X, Y mat.Matrix, cfg TreeConfig) (model.Predictor, error) {
	reg := lightgbm.NewMultiOutputRegressor(b.hyperparameters(cfg))
	reg.MaxParallel = b.MaxParallel
	if err := reg.Fit(X, Y); err != nil {
		return nil, err
	}
	return reg, nil
}

// FitClassifier implements Booster.
func (b *LightGBMBooster) FitClassifier(X, y mat.Matrix, numClass int, cfg TreeConfig) (model.ProbabilisticClassifier, error) {
	clf := lightgbm.NewLGBMClassifier(numClass)
	clf.Hyperparameters = b.hyperparameters(cfg)
	if err := clf.Fit(X, y); err != nil {
		return nil, err
	}
	return clf, nil
}
