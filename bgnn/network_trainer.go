package bgnn

import (
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/metrics"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// metric names
const (
	MetricLoss     = "loss"
	MetricRMSLE    = "rmsle"
	MetricMAE      = "mae"
	MetricR2       = "r2"
	MetricAccuracy = "accuracy"
)

// MetricNames returns the metrics evaluated for task, in recording order.
func MetricNames(task Task) []string {
	switch task {
	case TaskClassification:
		return []string{MetricLoss, MetricAccuracy}
	default:
		return []string{MetricLoss, MetricRMSLE, MetricMAE, MetricR2}
	}
}

// Masks lists the node indices of each split.
type Masks struct {
	Train []int `json:"train" yaml:"train"`
	Val   []int `json:"val" yaml:"val"`
	Test  []int `json:"test" yaml:"test"`
}

// networkTrainer runs the backpropagation passes of one epoch and evaluates the
// network on each split.
type networkTrainer struct {
	task      Task
	module    gnn.Module
	optimizer gnn.Optimizer
	loss      LossFunc

	// features receives input gradients when it is optimised
	features *gnn.Param
}

// trainAndEvaluate runs passes optimizer steps on the train rows and returns the
// last training loss and the evaluation of every metric.
func (t *networkTrainer) trainAndEvaluate(g *gnn.Graph, x *mat.Dense, targets *mat.Dense, masks Masks, passes, epoch int) (float64, map[string]Triple, error) {
	trainY := selectRows(targets, masks.Train)
	var loss float64
	for pass := 0; pass < passes; pass++ {
		t.optimizer.ZeroGrad()

		out, err := t.module.Forward(g, x, true)
		if err != nil {
			return 0, nil, errors.Wrap(err, "network forward")
		}
		pred := selectRows(out, masks.Train)
		l, grad, err := t.loss(pred, trainY)
		if err != nil {
			return 0, nil, errors.Wrap(err, "network loss")
		}
		if err := errors.CheckScalar("bgnn.trainLoss", l, epoch); err != nil {
			return 0, nil, err
		}
		loss = l

		n, c := out.Dims()
		dOut := mat.NewDense(n, c, nil)
		for k, i := range masks.Train {
			dOut.SetRow(i, grad.RawRowView(k))
		}
		dX, err := t.module.Backward(dOut)
		if err != nil {
			return 0, nil, errors.Wrap(err, "network backward")
		}
		if t.features != nil {
			t.features.AccumulateGrad(dX)
		}
		t.optimizer.Step()
	}

	out, err := t.module.Forward(g, x, false)
	if err != nil {
		return 0, nil, errors.Wrap(err, "network evaluation")
	}
	results, err := evaluate(t.task, out, targets, masks)
	if err != nil {
		return 0, nil, err
	}
	return loss, results, nil
}

func evaluate(task Task, out, targets *mat.Dense, masks Masks) (map[string]Triple, error) {
	names := MetricNames(task)
	results := make(map[string]Triple, len(names))
	splits := [][]int{masks.Train, masks.Val, masks.Test}
	values := make([][]float64, len(splits))
	for s, rows := range splits {
		m, err := evaluateRows(task, selectRows(out, rows), selectRows(targets, rows))
		if err != nil {
			return nil, err
		}
		values[s] = m
	}
	for k, name := range names {
		results[name] = Triple{Train: values[0][k], Val: values[1][k], Test: values[2][k]}
	}
	return results, nil
}

// evaluateRows returns the metrics of MetricNames(task) in order.
func evaluateRows(task Task, pred, y *mat.Dense) ([]float64, error) {
	switch task {
	case TaskRegression:
		loss, err := metrics.StableRMSE(y, pred)
		if err != nil {
			return nil, err
		}
		rmsle, err := metrics.RMSLE(y, pred)
		if err != nil {
			return nil, err
		}
		mae, err := metrics.MAE(y, pred)
		if err != nil {
			return nil, err
		}
		r2, err := metrics.R2Score(y, pred)
		if err != nil {
			return nil, err
		}
		return []float64{loss, rmsle, mae, r2}, nil
	case TaskClassification:
		ce, err := metrics.CrossEntropy(y, pred)
		if err != nil {
			return nil, err
		}
		acc, err := metrics.AccuracyFromLogits(y, pred)
		if err != nil {
			return nil, err
		}
		return []float64{ce, acc}, nil
	default:
		return nil, errors.NewUnknownTaskError("evaluate", string(task))
	}
}

func selectRows(m *mat.Dense, rows []int) *mat.Dense {
	_, c := m.Dims()
	if len(rows) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(rows), c, nil)
	for k, i := range rows {
		copy(out.RawRowView(k), m.RawRowView(i))
	}
	return out
}
