package lightgbm

import (
	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// LGBMClassifier is a multiclass softmax classifier. Labels are class indices in
// [0, NumClass).
type LGBMClassifier struct {
	model.BaseEstimator
	Hyperparameters

	NumClass int

	Model *Model

	nFeatures_ int
}

// NewLGBMClassifier creates a classifier for numClass classes.
func NewLGBMClassifier(numClass int) *LGBMClassifier {
	return &LGBMClassifier{
		Hyperparameters: DefaultHyperparameters(),
		NumClass:        numClass,
	}
}

// Fit trains the classifier on an n × 1 label column.
func (c *LGBMClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMClassifier.Fit")

	if c.NumClass < 2 {
		return errors.NewValidationError("num_class", "classifier needs at least 2 classes", c.NumClass)
	}
	rows, cols := X.Dims()
	if yRows, _ := y.Dims(); rows != yRows {
		return errors.NewDimensionError("LGBMClassifier.Fit", rows, yRows, 0)
	}

	if c.Verbosity > 0 {
		log.GetLoggerWithName("lightgbm.classifier").Info("Training LGBMClassifier",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.ClassesKey, c.NumClass,
		)
	}

	trainer := NewTrainer(c.trainingParams(MulticlassSoftmax, c.NumClass))
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "LGBMClassifier.Fit")
	}
	c.Model = trainer.GetModel()
	c.nFeatures_ = cols
	c.SetFitted()
	return nil
}

// PredictProba returns an n × NumClass matrix of class probabilities.
func (c *LGBMClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.RequireFitted("LGBMClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if _, cols := X.Dims(); cols != c.nFeatures_ {
		return nil, errors.NewDimensionError("LGBMClassifier.PredictProba", c.nFeatures_, cols, 1)
	}
	return c.Model.Predict(X)
}

// Predict returns the most probable class index of each row as an n × 1 matrix.
func (c *LGBMClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, k := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, float64(best))
	}
	return out, nil
}

// NumClasses returns the number of classes.
func (c *LGBMClassifier) NumClasses() int {
	return c.NumClass
}
