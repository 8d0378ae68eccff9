package bgnn

import (
	"encoding/json"
	"slices"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
)

// Triple holds one metric evaluated on the train, validation and test rows.
type Triple struct {
	Train float64 `json:"train"`
	Val   float64 `json:"val"`
	Test  float64 `json:"test"`
}

// History records one Triple per metric and epoch, in metric insertion order.
type History struct {
	names  []string
	values map[string][]Triple

	// MetricName is the metric that drove early stopping.
	MetricName string
	// BestEpoch is the epoch of the best validation value of MetricName.
	BestEpoch int
	// Best is the metric triple of BestEpoch.
	Best Triple
	// StopReason explains why training ended.
	StopReason string
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{values: make(map[string][]Triple)}
}

// Append records t for the metric name.
func (h *History) Append(name string, t Triple) {
	if h.values == nil {
		h.values = make(map[string][]Triple)
	}
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = append(h.values[name], t)
}

// Names returns the metric names in the order they were first recorded.
func (h *History) Names() []string {
	return slices.Clone(h.names)
}

// Get returns a copy of the values recorded for name.
func (h *History) Get(name string) []Triple {
	return slices.Clone(h.values[name])
}

// Len returns the number of epochs recorded for name.
func (h *History) Len(name string) int {
	return len(h.values[name])
}

// Last returns the latest triple of name.
func (h *History) Last(name string) (Triple, bool) {
	v := h.values[name]
	if len(v) == 0 {
		return Triple{}, false
	}
	return v[len(v)-1], true
}

type historyMetric struct {
	Name   string   `json:"name"`
	Values []Triple `json:"values"`
}

type historyJSON struct {
	MetricName string          `json:"metric_name,omitempty"`
	BestEpoch  int             `json:"best_epoch"`
	Best       Triple          `json:"best"`
	StopReason string          `json:"stop_reason,omitempty"`
	Metrics    []historyMetric `json:"metrics"`
}

// MarshalJSON keeps the metric order.
func (h *History) MarshalJSON() ([]byte, error) {
	out := historyJSON{
		MetricName: h.MetricName,
		BestEpoch:  h.BestEpoch,
		Best:       h.Best,
		StopReason: h.StopReason,
		Metrics:    make([]historyMetric, 0, len(h.names)),
	}
	for _, name := range h.names {
		out.Metrics = append(out.Metrics, historyMetric{Name: name, Values: h.values[name]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a history written by MarshalJSON.
func (h *History) UnmarshalJSON(data []byte) error {
	var in historyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "decode history")
	}
	*h = History{
		values:     make(map[string][]Triple, len(in.Metrics)),
		MetricName: in.MetricName,
		BestEpoch:  in.BestEpoch,
		Best:       in.Best,
		StopReason: in.StopReason,
	}
	for _, m := range in.Metrics {
		if _, dup := h.values[m.Name]; dup {
			return errors.NewValidationError("metrics", "duplicate metric name", m.Name)
		}
		h.names = append(h.names, m.Name)
		h.values[m.Name] = m.Values
	}
	return nil
}
