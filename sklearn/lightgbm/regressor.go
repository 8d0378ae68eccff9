package lightgbm

import (
	"runtime"

	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Hyperparameters shared by the regressor and classifier front ends.
type Hyperparameters struct {
	NumLeaves           int     // Number of leaves in one tree
	MaxDepth            int     // Maximum tree depth, <= 0 for no limit
	LearningRate        float64 // Boosting learning rate
	NumIterations       int     // Number of boosting iterations
	MinChildSamples     int     // Minimum number of data in one leaf
	ColsampleBytree     float64 // Subsample ratio of columns when constructing tree
	RegLambda           float64 // L2 regularization
	MinSplitGain        float64 // Minimum gain to make a split
	RandomState         uint64  // Random seed
	Verbosity           int     // Verbosity level
	CategoricalFeatures []int   // Indices of categorical features
}

// DefaultHyperparameters mirrors the Python package defaults.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		ColsampleBytree: 1.0,
		MinSplitGain:    1e-7,
	}
}

func (h Hyperparameters) trainingParams(objective ObjectiveType, numClass int) TrainingParams {
	return TrainingParams{
		NumIterations:       h.NumIterations,
		LearningRate:        h.LearningRate,
		NumLeaves:           h.NumLeaves,
		MaxDepth:            h.MaxDepth,
		MinDataInLeaf:       h.MinChildSamples,
		Lambda:              h.RegLambda,
		MinGainToSplit:      h.MinSplitGain,
		FeatureFraction:     h.ColsampleBytree,
		Objective:           string(objective),
		NumClass:            numClass,
		CategoricalFeatures: h.CategoricalFeatures,
		Seed:                h.RandomState,
		Verbosity:           h.Verbosity,
	}
}

// LGBMRegressor fits a single target column with squared error.
type LGBMRegressor struct {
	model.BaseEstimator
	Hyperparameters

	Model *Model

	nFeatures_ int
}

// NewLGBMRegressor creates a new regressor with default parameters
func NewLGBMRegressor() *LGBMRegressor {
	return &LGBMRegressor{Hyperparameters: DefaultHyperparameters()}
}

// WithNumLeaves sets the leaf limit.
func (lgb *LGBMRegressor) WithNumLeaves(n int) *LGBMRegressor {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the depth limit.
func (lgb *LGBMRegressor) WithMaxDepth(d int) *LGBMRegressor {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the shrinkage rate.
func (lgb *LGBMRegressor) WithLearningRate(lr float64) *LGBMRegressor {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of trees.
func (lgb *LGBMRegressor) WithNumIterations(n int) *LGBMRegressor {
	lgb.NumIterations = n
	return lgb
}

// WithMinChildSamples sets the minimum rows per leaf.
func (lgb *LGBMRegressor) WithMinChildSamples(n int) *LGBMRegressor {
	lgb.MinChildSamples = n
	return lgb
}

// WithRandomState sets the feature sampling seed.
func (lgb *LGBMRegressor) WithRandomState(seed uint64) *LGBMRegressor {
	lgb.RandomState = seed
	return lgb
}

// WithCategoricalFeatures marks columns as categorical.
func (lgb *LGBMRegressor) WithCategoricalFeatures(cols []int) *LGBMRegressor {
	lgb.CategoricalFeatures = cols
	return lgb
}

// Fit trains the regressor on an n × 1 target.
func (lgb *LGBMRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("LGBMRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LGBMRegressor.Fit", 1, yCols, 1)
	}

	if lgb.Verbosity > 0 {
		log.GetLoggerWithName("lightgbm.regressor").Info("Training LGBMRegressor",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
		)
	}

	trainer := NewTrainer(lgb.trainingParams(RegressionL2, 1))
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "LGBMRegressor.Fit")
	}
	lgb.Model = trainer.GetModel()
	lgb.nFeatures_ = cols
	lgb.SetFitted()
	return nil
}

// Predict returns an n × 1 matrix of predictions.
func (lgb *LGBMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lgb.RequireFitted("LGBMRegressor", "Predict"); err != nil {
		return nil, err
	}
	if _, cols := X.Dims(); cols != lgb.nFeatures_ {
		return nil, errors.NewDimensionError("LGBMRegressor.Predict", lgb.nFeatures_, cols, 1)
	}
	return lgb.Model.Predict(X)
}

// MultiOutputRegressor fits one LGBMRegressor per target column.
type MultiOutputRegressor struct {
	model.BaseEstimator
	Hyperparameters

	// MaxParallel bounds concurrent column fits, runtime.NumCPU() when <= 0.
	MaxParallel int

	Estimators []*LGBMRegressor
}

// NewMultiOutputRegressor creates a multi-output regressor with the given parameters.
func NewMultiOutputRegressor(h Hyperparameters) *MultiOutputRegressor {
	return &MultiOutputRegressor{Hyperparameters: h}
}

// Fit trains one regressor per column of Y concurrently.
func (m *MultiOutputRegressor) Fit(X, Y mat.Matrix) error {
	rows, _ := X.Dims()
	yRows, yCols := Y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("MultiOutputRegressor.Fit", rows, yRows, 0)
	}
	if yCols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "MultiOutputRegressor.Fit")
	}

	estimators := make([]*LGBMRegressor, yCols)
	var g errgroup.Group
	limit := m.MaxParallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for j := 0; j < yCols; j++ {
		// a panic in a worker goroutine would not reach the caller's Recover
		g.Go(func() error {
			return errors.SafeExecute("MultiOutputRegressor.Fit", func() error {
				col := mat.NewDense(yRows, 1, mat.Col(nil, j, Y))
				reg := &LGBMRegressor{Hyperparameters: m.Hyperparameters}
				if err := reg.Fit(X, col); err != nil {
					return errors.Wrapf(err, "output column %d", j)
				}
				estimators[j] = reg
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.Estimators = estimators
	m.SetFitted()
	return nil
}

// Predict returns an n × outputs matrix.
func (m *MultiOutputRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := m.RequireFitted("MultiOutputRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(m.Estimators), nil)
	for j, est := range m.Estimators {
		pred, err := est.Predict(X)
		if err != nil {
			return nil, errors.Wrapf(err, "output column %d", j)
		}
		out.SetCol(j, mat.Col(nil, 0, pred))
	}
	return out, nil
}
