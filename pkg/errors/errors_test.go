package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "booster failed",
			err:      fmt.Errorf("test error"),
			wantMsg:  "bgnn: Fit: booster failed: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "bgnn: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestModelErrorUnwrap(t *testing.T) {
	inner := New("inner")
	err := NewModelError("Fit", "stage", inner)
	if !Is(err, inner) {
		t.Error("expected ModelError to unwrap to the inner error")
	}
}

func TestUnknownTaskError(t *testing.T) {
	err := NewUnknownTaskError("loss", "ranking")

	var taskErr *UnknownTaskError
	if !As(err, &taskErr) {
		t.Fatalf("expected *UnknownTaskError, got %T", err)
	}
	if taskErr.Task != "ranking" {
		t.Errorf("Task = %q, want %q", taskErr.Task, "ranking")
	}
	if !strings.Contains(err.Error(), "classification, regression") {
		t.Errorf("message should list supported tasks: %s", err.Error())
	}
}

func TestDimensionErrorMessage(t *testing.T) {
	tests := []struct {
		axis int
		want string
	}{
		{axis: 0, want: "(rows)"},
		{axis: 1, want: "(columns)"},
	}
	for _, tt := range tests {
		err := NewDimensionError("Predict", 3, 4, tt.axis)
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("axis %d: %q does not contain %q", tt.axis, err.Error(), tt.want)
		}
	}
}

func TestStackTrace(t *testing.T) {
	err := NewValidationError("patience", "must be non-negative", -1)
	if StackTrace(err) == "" {
		t.Error("expected a stack trace for an error built by this package")
	}
	if StackTrace(fmt.Errorf("plain")) != "" {
		t.Error("plain errors carry no stack trace")
	}
}

func TestWarnRoutesToHandler(t *testing.T) {
	var got []error
	SetZerologWarnFunc(nil)
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("r2", "constant target", 0))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "'r2' is ill-defined") {
		t.Errorf("unexpected warning text: %v", got[0])
	}
}

func TestCheckMatrix(t *testing.T) {
	tests := []struct {
		name    string
		m       *mat.Dense
		wantErr bool
	}{
		{name: "finite", m: mat.NewDense(2, 2, []float64{1, 2, 3, 4}), wantErr: false},
		{name: "nan", m: mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4}), wantErr: true},
		{name: "inf", m: mat.NewDense(1, 2, []float64{math.Inf(-1), 0}), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMatrix("test", tt.m, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckMatrix() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var numErr *NumericalInstabilityError
				if !As(err, &numErr) || numErr.Iteration != 3 {
					t.Errorf("expected NumericalInstabilityError at iteration 3, got %v", err)
				}
			}
		})
	}
}

func TestLogSumExp(t *testing.T) {
	got := LogSumExp([]float64{1000, 1000})
	want := 1000 + math.Log(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogSumExp = %v, want %v", got, want)
	}
	if !math.IsInf(LogSumExp(nil), -1) {
		t.Error("LogSumExp(nil) should be -Inf")
	}
}
