package bgnn

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
)

// Direction tells whether smaller or larger validation values are better.
type Direction int

const (
	// DirectionAuto maximises r2 and accuracy and minimises every other metric.
	DirectionAuto Direction = iota
	Minimize
	Maximize
)

func (d Direction) String() string {
	switch d {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return "auto"
	}
}

// ParseDirection accepts "", "auto", "minimize" and "maximize".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "auto":
		return DirectionAuto, nil
	case "minimize", "min":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	default:
		return 0, errors.NewValidationError("direction", "must be auto, minimize or maximize", s)
	}
}

func (d Direction) resolve(metric string) Direction {
	if d != DirectionAuto {
		return d
	}
	if metric == MetricR2 || metric == MetricAccuracy {
		return Maximize
	}
	return Minimize
}

// stop reasons
const (
	StopCompleted     = "completed"
	StopEarlyStopping = "early_stopping"
	StopConverged     = "converged"
	StopCanceled      = "canceled"
)

// tracker keeps the best validation value of one metric and counts the epochs
// since it last improved.
type tracker struct {
	metric    string
	direction Direction
	patience  int

	best      Triple
	bestEpoch int
	sinceBest int
}

func newTracker(metric string, direction Direction, patience int) *tracker {
	direction = direction.resolve(metric)
	worst := math.Inf(1)
	if direction == Maximize {
		worst = math.Inf(-1)
	}
	return &tracker{
		metric:    metric,
		direction: direction,
		patience:  patience,
		best:      Triple{Train: worst, Val: worst, Test: worst},
	}
}

func (t *tracker) better(v float64) bool {
	if t.direction == Maximize {
		return v > t.best.Val
	}
	return v < t.best.Val
}

// record compares the latest value of the tracked metric and reports whether
// patience is exhausted. A non-positive patience never stops.
func (t *tracker) record(epoch int, h *History) (bool, error) {
	latest, ok := h.Last(t.metric)
	if !ok {
		return false, errors.NewValidationError("metric_name", "metric was not recorded", t.metric)
	}
	if t.better(latest.Val) {
		t.best = latest
		t.bestEpoch = epoch
		t.sinceBest = 0
	} else {
		t.sinceBest++
	}
	return t.patience > 0 && t.sinceBest > t.patience, nil
}
