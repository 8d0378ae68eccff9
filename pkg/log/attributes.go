// Package log defines standard attribute keys.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples") so that
// log records from the tree stage, the network trainer and the fit loop can be
// filtered together.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model, e.g. "BGNNPredictor", "GCN".
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one Fit run.
	EstimatorIDKey = "estimator.id"

	// OperationKey is the operation being performed ("fit", "predict", ...).
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or component that logs.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase ("training", "inference", ...).
	PhaseKey = "ml.phase"

	// TaskKey is the prediction task ("regression", "classification").
	TaskKey = "ml.task"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetsKey  = "data.targets"
	ClassesKey  = "data.classes"

	// InDimKey and OutDimKey are the node feature tensor widths.
	InDimKey  = "data.in_dim"
	OutDimKey = "data.out_dim"

	// TrainRowsKey, ValRowsKey and TestRowsKey are mask sizes.
	TrainRowsKey = "data.train_rows"
	ValRowsKey   = "data.val_rows"
	TestRowsKey  = "data.test_rows"
)

// Performance and training progress.
const (
	DurationMsKey      = "perf.duration_ms"
	DurationSecondsKey = "perf.duration_seconds"

	AccuracyKey = "metrics.accuracy"
	LossKey     = "metrics.loss"
	R2ScoreKey  = "metrics.r2_score"

	// MetricNameKey names the metric that drives early stopping.
	MetricNameKey = "metrics.name"
	TrainScoreKey = "metrics.train"
	ValScoreKey   = "metrics.val"
	TestScoreKey  = "metrics.test"

	IterationKey = "training.iteration"
	EpochKey     = "training.epoch"
)

// Co-training loop.
const (
	// StageKey is the tree stage of an epoch ("regression", "classification_initial",
	// "classification_residual").
	StageKey = "bgnn.stage"

	// BestEpochKey is the epoch with the best validation metric.
	BestEpochKey = "bgnn.best_epoch"

	// PatienceKey is the configured early-stopping patience.
	PatienceKey = "bgnn.patience"

	// StopReasonKey explains why the fit loop stopped.
	StopReasonKey = "bgnn.stop_reason"

	// TreesKey is the number of trees fitted per epoch.
	TreesKey = "bgnn.trees_per_epoch"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters.
const (
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
)
