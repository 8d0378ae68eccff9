package bgnn

import "time"

// EpochReport summarises one finished epoch.
type EpochReport struct {
	Epoch int
	Stage string

	// Loss is the training loss of the last backpropagation pass.
	Loss float64

	// Metrics holds the evaluation of this epoch, keyed by metric name.
	Metrics map[string]Triple

	Duration time.Duration
}

// EpochObserver is notified after every epoch. Observers run on the training
// goroutine and should return quickly.
type EpochObserver interface {
	ObserveEpoch(r EpochReport)
}

// EpochObserverFunc adapts a function to EpochObserver.
type EpochObserverFunc func(r EpochReport)

func (f EpochObserverFunc) ObserveEpoch(r EpochReport) { f(r) }
