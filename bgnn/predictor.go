package bgnn

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/metrics"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const defaultHiddenDim = 64

// Dataset is the input of Fit.
type Dataset struct {
	// X holds the node features given to the network, one row per node.
	X *mat.Dense

	// Y holds regression targets, or class indices in one column.
	Y *mat.Dense

	Masks Masks

	// OriginalX holds the features given to the trees, X when nil.
	OriginalX *mat.Dense

	// CategoricalFeatures are column indices of OriginalX. They are ignored
	// when OriginalX is nil.
	CategoricalFeatures []int
}

// FitConfig controls one Fit call.
type FitConfig struct {
	NumEpochs int `json:"num_epochs" yaml:"num_epochs"`

	// Patience stops training after this many epochs without improvement of
	// the validation metric. Zero disables early stopping.
	Patience int `json:"patience" yaml:"patience"`

	// LoggingEpochs logs every n-th epoch, 1 when zero.
	LoggingEpochs int `json:"logging_epochs" yaml:"logging_epochs"`

	// MetricName drives early stopping, "loss" when empty.
	MetricName string `json:"metric_name" yaml:"metric_name"`

	Direction Direction `json:"-" yaml:"-"`
}

// Predictor alternates tree boosting and graph network training.
type Predictor struct {
	model.BaseEstimator

	cfg       Config
	network   NetworkFactory
	booster   Booster
	lossFn    LossFunc
	logger    log.Logger
	observers []EpochObserver

	module     gnn.Module
	trees      *treeEnsemble
	outDim     int
	featureDim int
}

// New creates a predictor with DefaultConfig modified by opts.
func New(opts ...Option) (*Predictor, error) {
	p := &Predictor{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if p.network == nil {
		p.network = GCNNetwork(defaultHiddenDim, 0, p.cfg.RandomSeed)
	}
	if p.booster == nil {
		p.booster = NewLightGBMBooster()
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("bgnn")
	}
	return p, nil
}

// Config returns the hyperparameters.
func (p *Predictor) Config() Config { return p.cfg }

// OutDim returns the width of the prediction columns of the last Fit.
func (p *Predictor) OutDim() int { return p.outDim }

// Module returns the network of the last Fit.
func (p *Predictor) Module() gnn.Module { return p.module }

func (p *Predictor) treeConfig(categorical []int) TreeConfig {
	return TreeConfig{
		Trees:               p.cfg.TreesPerEpoch,
		Depth:               p.cfg.TreeDepth,
		LearningRate:        p.cfg.TreeLearningRate,
		Seed:                p.cfg.RandomSeed,
		CategoricalFeatures: categorical,
	}
}

func validateRows(name string, rows []int, n int) error {
	if len(rows) == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "%s mask", name)
	}
	for _, i := range rows {
		if i < 0 || i >= n {
			return errors.NewValidationError(name, "node index out of range", i)
		}
	}
	return nil
}

func (p *Predictor) validate(g *gnn.Graph, data Dataset, fc *FitConfig) error {
	if g == nil || data.X == nil || data.Y == nil {
		return errors.NewValueError("Predictor.Fit", "graph, X and Y are required")
	}
	n, _ := data.X.Dims()
	if n != g.NumNodes() {
		return errors.NewDimensionError("Predictor.Fit", g.NumNodes(), n, 0)
	}
	if yr, _ := data.Y.Dims(); yr != n {
		return errors.NewDimensionError("Predictor.Fit", n, yr, 0)
	}
	if data.OriginalX != nil {
		if r, _ := data.OriginalX.Dims(); r != n {
			return errors.NewDimensionError("Predictor.Fit", n, r, 0)
		}
	}
	for name, rows := range map[string][]int{"train": data.Masks.Train, "val": data.Masks.Val, "test": data.Masks.Test} {
		if err := validateRows(name, rows, n); err != nil {
			return err
		}
	}

	if fc.NumEpochs <= 0 {
		return errors.NewValidationError("num_epochs", "must be positive", fc.NumEpochs)
	}
	if fc.Patience < 0 {
		return errors.NewValidationError("patience", "must not be negative", fc.Patience)
	}
	if fc.LoggingEpochs <= 0 {
		fc.LoggingEpochs = 1
	}
	if fc.MetricName == "" {
		fc.MetricName = MetricLoss
	}
	if !slices.Contains(MetricNames(p.cfg.Task), fc.MetricName) {
		return errors.NewValidationError("metric_name", "not evaluated for task "+string(p.cfg.Task), fc.MetricName)
	}
	return nil
}

// deriveOutDim returns the width of the prediction columns. Without a configured
// class count it is the number of distinct labels among the test rows.
func (p *Predictor) deriveOutDim(data Dataset) int {
	if p.cfg.Task == TaskRegression {
		_, c := data.Y.Dims()
		return c
	}
	if p.cfg.NumClasses > 0 {
		return p.cfg.NumClasses
	}
	seen := make(map[float64]struct{})
	for _, i := range data.Masks.Test {
		seen[data.Y.At(i, 0)] = struct{}{}
	}
	p.logger.Warn("number of classes derived from test labels",
		log.ClassesKey, len(seen),
		log.TestRowsKey, len(data.Masks.Test),
	)
	return len(seen)
}

// validateLabels checks that every train label is a class index below outDim.
// A derived class count misses classes absent from the test rows.
func (p *Predictor) validateLabels(data Dataset) error {
	if p.cfg.Task != TaskClassification {
		return nil
	}
	for _, i := range data.Masks.Train {
		label := data.Y.At(i, 0)
		if label >= 0 && label < float64(p.outDim) && label == math.Trunc(label) {
			continue
		}
		reason := fmt.Sprintf("train label at row %d is not a class index in [0, %d)", i, p.outDim)
		if p.cfg.NumClasses == 0 {
			reason += "; the class count was derived from the test labels, set WithNumClasses / num_classes"
		}
		return errors.NewValidationError("num_classes", reason, label)
	}
	return nil
}

// Fit trains the trees and the network from scratch and returns the metric
// history. The context is checked between epochs; on cancellation the history
// so far is returned with the context error.
func (p *Predictor) Fit(ctx context.Context, g *gnn.Graph, data Dataset, fc FitConfig) (history *History, err error) {
	defer errors.Recover(&err, "Predictor.Fit")

	if err := p.validate(g, data, &fc); err != nil {
		return nil, err
	}
	p.Reset()

	lossFn := p.lossFn
	if lossFn == nil {
		if lossFn, err = defaultLoss(p.cfg.Task); err != nil {
			return nil, err
		}
	}

	_, p.featureDim = data.X.Dims()
	p.outDim = p.deriveOutDim(data)
	if err := p.validateLabels(data); err != nil {
		return nil, err
	}

	originalX, categorical := data.OriginalX, data.CategoricalFeatures
	if originalX == nil {
		originalX, categorical = data.X, nil
	}

	state := newFeatureState(data.X, p.outDim, p.cfg.AppendPredictions)
	module, err := p.network(state.inDim(), p.outDim)
	if err != nil {
		return nil, errors.Wrap(err, "build network")
	}
	p.module = module
	p.trees = newTreeEnsemble()

	params := module.Params()
	trainer := &networkTrainer{task: p.cfg.Task, module: module, loss: lossFn}
	if p.cfg.OptimizeNodeFeatures {
		params = append(params, state.param)
		trainer.features = state.param
	}
	trainer.optimizer = gnn.NewAdam(params, p.cfg.LearningRate)

	logger := p.logger.With(
		log.OperationKey, log.OperationFit,
		log.TaskKey, string(p.cfg.Task),
	)
	logger.Info("starting fit",
		log.SamplesKey, g.NumNodes(),
		log.FeaturesKey, p.featureDim,
		log.InDimKey, state.inDim(),
		log.OutDimKey, p.outDim,
		log.TrainRowsKey, len(data.Masks.Train),
		log.ValRowsKey, len(data.Masks.Val),
		log.TestRowsKey, len(data.Masks.Test),
		log.TreesKey, p.cfg.TreesPerEpoch,
	)

	treeX := selectRows(originalX, data.Masks.Train)
	treeY := selectRows(data.Y, data.Masks.Train)
	treeCfg := p.treeConfig(categorical)

	history = NewHistory()
	history.MetricName = fc.MetricName
	track := newTracker(fc.MetricName, fc.Direction, fc.Patience)
	stopReason := StopCompleted

	for epoch := 0; epoch < fc.NumEpochs; epoch++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			finishHistory(history, track, StopCanceled)
			return history, errors.Wrapf(ctxErr, "fit canceled before epoch %d", epoch)
		}
		start := time.Now()

		stage, err := resolveStage(p.cfg.Task, epoch)
		if err != nil {
			return nil, err
		}
		if err := p.trainTrees(stage, treeX, treeY, treeCfg); err != nil {
			return nil, errors.Wrapf(err, "epoch %d: tree stage %s", epoch, stage)
		}

		preds, err := p.trees.predict(originalX)
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %d: tree prediction", epoch)
		}
		if err := errors.CheckMatrix("bgnn.treePredictions", preds, epoch); err != nil {
			return nil, err
		}
		if err := state.update(preds, data.X, p.cfg.TrainInputFeatures); err != nil {
			return nil, errors.Wrapf(err, "epoch %d", epoch)
		}
		before := state.snapshot()

		loss, results, err := trainer.trainAndEvaluate(g, state.value(), data.Y, data.Masks, p.cfg.BackpropPerEpoch, epoch)
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %d", epoch)
		}
		for _, name := range MetricNames(p.cfg.Task) {
			history.Append(name, results[name])
		}

		residuals, err := residualTargets(state.value(), before, data.Masks.Train, p.outDim)
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %d", epoch)
		}
		treeY = residuals

		elapsed := time.Since(start)
		if epoch > 0 && epoch%fc.LoggingEpochs == 0 {
			m := results[fc.MetricName]
			logger.Info("epoch finished",
				log.EpochKey, epoch,
				log.StageKey, stage.String(),
				log.LossKey, loss,
				log.MetricNameKey, fc.MetricName,
				log.TrainScoreKey, m.Train,
				log.ValScoreKey, m.Val,
				log.TestScoreKey, m.Test,
				log.DurationSecondsKey, elapsed.Seconds(),
			)
		}
		p.notify(EpochReport{Epoch: epoch, Stage: stage.String(), Loss: loss, Metrics: results, Duration: elapsed})

		stop, err := track.record(epoch, history)
		if err != nil {
			return nil, err
		}
		if stop {
			stopReason = StopEarlyStopping
			break
		}
		if converged(residuals) {
			logger.Info("node embeddings do not change anymore, stopping", log.EpochKey, epoch)
			stopReason = StopConverged
			break
		}
	}

	finishHistory(history, track, stopReason)
	p.SetFitted()
	logger.Info("best validation epoch",
		log.MetricNameKey, fc.MetricName,
		log.BestEpochKey, history.BestEpoch,
		log.TrainScoreKey, history.Best.Train,
		log.ValScoreKey, history.Best.Val,
		log.TestScoreKey, history.Best.Test,
		log.StopReasonKey, stopReason,
	)
	return history, nil
}

func finishHistory(h *History, t *tracker, reason string) {
	h.BestEpoch = t.bestEpoch
	h.Best = t.best
	h.StopReason = reason
}

// trainTrees fits the increment of stage and adds it to the ensemble.
func (p *Predictor) trainTrees(stage treeStage, X, y *mat.Dense, cfg TreeConfig) error {
	inc, err := stage.fitIncrement(p.booster, X, y, p.outDim, cfg)
	if err != nil {
		return err
	}
	return stage.combine(p.trees, inc, p.cfg.TreeAlpha)
}

func (p *Predictor) notify(r EpochReport) {
	for _, o := range p.observers {
		o.ObserveEpoch(r)
	}
}

// Predict returns the network output on the rows in mask: one column per target
// for regression, the predicted class index for classification. The node
// features are rebuilt from X and the ensemble predictions on originalX (X when
// nil); the fitted state is not modified.
func (p *Predictor) Predict(g *gnn.Graph, X, originalX *mat.Dense, mask []int) (pred *mat.Dense, err error) {
	defer errors.Recover(&err, "Predictor.Predict")

	if err := p.RequireFitted("BGNNPredictor", "Predict"); err != nil {
		return nil, err
	}
	if g == nil || X == nil {
		return nil, errors.NewValueError("Predictor.Predict", "graph and X are required")
	}
	n, c := X.Dims()
	if n != g.NumNodes() {
		return nil, errors.NewDimensionError("Predictor.Predict", g.NumNodes(), n, 0)
	}
	if c != p.featureDim {
		return nil, errors.NewDimensionError("Predictor.Predict", p.featureDim, c, 1)
	}
	if err := validateRows("mask", mask, n); err != nil {
		return nil, err
	}
	if originalX == nil {
		originalX = X
	}

	preds, err := p.trees.predict(originalX)
	if err != nil {
		return nil, err
	}
	state := newFeatureState(X, p.outDim, p.cfg.AppendPredictions)
	if err := state.update(preds, X, false); err != nil {
		return nil, err
	}
	out, err := p.module.Forward(g, state.value(), false)
	if err != nil {
		return nil, err
	}
	out = selectRows(out, mask)

	if p.cfg.Task == TaskClassification {
		return metrics.ArgMax(out), nil
	}
	return out, nil
}
