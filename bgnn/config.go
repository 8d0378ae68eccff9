package bgnn

import (
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
)

// Task selects the prediction problem.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	switch t := Task(s); t {
	case TaskRegression, TaskClassification:
		return t, nil
	default:
		return "", errors.NewValidationError("task", "must be regression or classification", s)
	}
}

// Config holds the predictor hyperparameters.
type Config struct {
	Task Task `json:"task" yaml:"task"`

	// TreesPerEpoch is the number of boosting iterations of every tree increment.
	TreesPerEpoch int `json:"trees_per_epoch" yaml:"trees_per_epoch"`

	// BackpropPerEpoch is the number of network optimizer steps per epoch.
	BackpropPerEpoch int `json:"backprop_per_epoch" yaml:"backprop_per_epoch"`

	// LearningRate of the network optimizer.
	LearningRate float64 `json:"lr" yaml:"lr"`

	// AppendPredictions keeps the input features and appends the ensemble
	// predictions. Otherwise the predictions replace the features.
	AppendPredictions bool `json:"append_gbdt_pred" yaml:"append_gbdt_pred"`

	// TrainInputFeatures keeps the trained values of the input feature columns
	// between epochs instead of resetting them to X.
	TrainInputFeatures bool `json:"train_input_features" yaml:"train_input_features"`

	// OptimizeNodeFeatures adds the node feature tensor to the optimizer.
	OptimizeNodeFeatures bool `json:"optimize_node_features" yaml:"optimize_node_features"`

	TreeDepth        int     `json:"gbdt_depth" yaml:"gbdt_depth"`
	TreeLearningRate float64 `json:"gbdt_lr" yaml:"gbdt_lr"`

	// TreeAlpha weighs every new tree increment against the existing chain.
	TreeAlpha float64 `json:"gbdt_alpha" yaml:"gbdt_alpha"`

	RandomSeed uint64 `json:"random_seed" yaml:"random_seed"`

	// NumClasses fixes the classification output width. When zero it is derived
	// from the labels of the test rows.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		Task:                 TaskRegression,
		TreesPerEpoch:        10,
		BackpropPerEpoch:     10,
		LearningRate:         0.01,
		AppendPredictions:    true,
		TrainInputFeatures:   false,
		OptimizeNodeFeatures: true,
		TreeDepth:            6,
		TreeLearningRate:     0.1,
		TreeAlpha:            1,
		RandomSeed:           0,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	if _, err := ParseTask(string(c.Task)); err != nil {
		return err
	}
	if c.TreesPerEpoch <= 0 {
		return errors.NewValidationError("trees_per_epoch", "must be positive", c.TreesPerEpoch)
	}
	if c.BackpropPerEpoch <= 0 {
		return errors.NewValidationError("backprop_per_epoch", "must be positive", c.BackpropPerEpoch)
	}
	if c.LearningRate <= 0 {
		return errors.NewValidationError("lr", "must be positive", c.LearningRate)
	}
	if c.TreeDepth <= 0 || c.TreeDepth > 16 {
		return errors.NewValidationError("gbdt_depth", "must be in [1, 16]", c.TreeDepth)
	}
	if c.TreeLearningRate <= 0 {
		return errors.NewValidationError("gbdt_lr", "must be positive", c.TreeLearningRate)
	}
	if c.NumClasses < 0 || c.NumClasses == 1 {
		return errors.NewValidationError("num_classes", "must be 0 or at least 2", c.NumClasses)
	}
	return nil
}

// NetworkFactory builds the graph network once the feature widths are known.
type NetworkFactory func(inDim, outDim int) (gnn.Module, error)

// GCNNetwork returns a factory for a two layer GCN.
func GCNNetwork(hiddenDim int, dropout float64, seed uint64) NetworkFactory {
	return func(inDim, outDim int) (gnn.Module, error) {
		return gnn.NewGCN(gnn.GCNConfig{
			InDim:     inDim,
			HiddenDim: hiddenDim,
			OutDim:    outDim,
			Dropout:   dropout,
			Seed:      seed,
		})
	}
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithConfig replaces every hyperparameter at once.
func WithConfig(c Config) Option {
	return func(p *Predictor) { p.cfg = c }
}

func WithTask(t Task) Option {
	return func(p *Predictor) { p.cfg.Task = t }
}

// WithLoss overrides the training loss of the network.
func WithLoss(fn LossFunc) Option {
	return func(p *Predictor) { p.lossFn = fn }
}

func WithTreesPerEpoch(n int) Option {
	return func(p *Predictor) { p.cfg.TreesPerEpoch = n }
}

func WithBackpropPerEpoch(n int) Option {
	return func(p *Predictor) { p.cfg.BackpropPerEpoch = n }
}

func WithLearningRate(lr float64) Option {
	return func(p *Predictor) { p.cfg.LearningRate = lr }
}

func WithAppendPredictions(v bool) Option {
	return func(p *Predictor) { p.cfg.AppendPredictions = v }
}

func WithTrainInputFeatures(v bool) Option {
	return func(p *Predictor) { p.cfg.TrainInputFeatures = v }
}

func WithOptimizeNodeFeatures(v bool) Option {
	return func(p *Predictor) { p.cfg.OptimizeNodeFeatures = v }
}

func WithTreeDepth(d int) Option {
	return func(p *Predictor) { p.cfg.TreeDepth = d }
}

func WithTreeLearningRate(lr float64) Option {
	return func(p *Predictor) { p.cfg.TreeLearningRate = lr }
}

func WithTreeAlpha(alpha float64) Option {
	return func(p *Predictor) { p.cfg.TreeAlpha = alpha }
}

func WithRandomSeed(seed uint64) Option {
	return func(p *Predictor) { p.cfg.RandomSeed = seed }
}

func WithNumClasses(n int) Option {
	return func(p *Predictor) { p.cfg.NumClasses = n }
}

// WithNetwork sets the graph network factory. The default is a GCN with 64
// hidden units and no dropout.
func WithNetwork(f NetworkFactory) Option {
	return func(p *Predictor) { p.network = f }
}

// WithBooster replaces the tree ensemble learner.
func WithBooster(b Booster) Option {
	return func(p *Predictor) { p.booster = b }
}

func WithLogger(l log.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// WithObserver registers an observer notified after every epoch.
func WithObserver(o EpochObserver) Option {
	return func(p *Predictor) { p.observers = append(p.observers, o) }
}
