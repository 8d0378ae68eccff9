package bgnn

import (
	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// treeStage is the kind of tree increment fitted in an epoch.
type treeStage int

const (
	// squared error on the regression targets, then on residuals
	stageRegression treeStage = iota
	// softmax classifier on the labels, fitted once as the base model
	stageClassificationInitial
	// multi-output squared error on the residuals of the class scores
	stageClassificationResidual
)

func (s treeStage) String() string {
	switch s {
	case stageRegression:
		return "regression"
	case stageClassificationInitial:
		return "classification_initial"
	case stageClassificationResidual:
		return "classification_residual"
	default:
		return "unknown"
	}
}

func resolveStage(task Task, epoch int) (treeStage, error) {
	switch task {
	case TaskRegression:
		return stageRegression, nil
	case TaskClassification:
		if epoch == 0 {
			return stageClassificationInitial, nil
		}
		return stageClassificationResidual, nil
	default:
		return 0, errors.NewUnknownTaskError("resolveStage", string(task))
	}
}

// treeEnsemble is the fitted tree side of the predictor: an optional base
// classifier and the weighted chain of increments.
type treeEnsemble struct {
	base  model.ProbabilisticClassifier
	chain *model.WeightedEnsemble
}

func newTreeEnsemble() *treeEnsemble {
	return &treeEnsemble{chain: model.NewWeightedEnsemble()}
}

// fitIncrement fits this stage's model on the training rows.
func (s treeStage) fitIncrement(b Booster, X, y mat.Matrix, numClass int, cfg TreeConfig) (model.Predictor, error) {
	switch s {
	case stageClassificationInitial:
		return b.FitClassifier(X, y, numClass, cfg)
	case stageRegression, stageClassificationResidual:
		return b.FitRegressor(X, y, cfg)
	default:
		return nil, errors.NewValueError("treeStage.fitIncrement", "unknown stage "+s.String())
	}
}

// combine adds an increment to the ensemble. The first chain member gets weight
// one; later members get alpha while existing members keep their weights.
func (s treeStage) combine(e *treeEnsemble, inc model.Predictor, alpha float64) error {
	if s == stageClassificationInitial {
		clf, ok := inc.(model.ProbabilisticClassifier)
		if !ok {
			return errors.NewValueError("treeStage.combine", "initial classification stage needs a probabilistic classifier")
		}
		e.base = clf
		return nil
	}
	if e.chain.Len() == 0 {
		e.chain.Add(inc, 1)
		return nil
	}
	e.chain.Add(inc, alpha)
	return nil
}

// predict returns the ensemble output for every row of X: the chain for
// regression and base probabilities plus the chain for classification.
func (e *treeEnsemble) predict(X mat.Matrix) (*mat.Dense, error) {
	var out *mat.Dense
	if e.base != nil {
		proba, err := e.base.PredictProba(X)
		if err != nil {
			return nil, err
		}
		out = mat.DenseCopyOf(proba)
	}
	if e.chain.Len() > 0 {
		pred, err := e.chain.Predict(X)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return mat.DenseCopyOf(pred), nil
		}
		if r, c := pred.Dims(); r != out.RawMatrix().Rows || c != out.RawMatrix().Cols {
			return nil, errors.NewDimensionError("treeEnsemble.predict", out.RawMatrix().Cols, c, 1)
		}
		out.Add(out, pred)
	}
	if out == nil {
		return nil, errors.NewNotFittedError("treeEnsemble", "predict")
	}
	return out, nil
}
