package bgnn

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"gonum.org/v1/gonum/mat"
)

func TestFitRegressionEndToEnd(t *testing.T) {
	const n = 100
	g := ringGraph(t, n)
	data := regressionData(n, 1)

	var reports []EpochReport
	p, err := New(
		WithLogger(quietLogger()),
		WithNetwork(GCNNetwork(16, 0, 1)),
		WithObserver(EpochObserverFunc(func(r EpochReport) { reports = append(reports, r) })),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	history, err := p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 5})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	wantNames := []string{MetricLoss, MetricRMSLE, MetricMAE, MetricR2}
	if got := history.Names(); strings.Join(got, ",") != strings.Join(wantNames, ",") {
		t.Fatalf("Names = %v, want %v", got, wantNames)
	}
	epochs := history.Len(MetricLoss)
	if epochs == 0 || epochs > 5 {
		t.Fatalf("recorded %d epochs, want 1..5", epochs)
	}
	for _, name := range wantNames {
		if history.Len(name) != epochs {
			t.Errorf("%s has %d values, want %d", name, history.Len(name), epochs)
		}
	}
	for i, tr := range history.Get(MetricLoss) {
		for _, v := range []float64{tr.Train, tr.Val, tr.Test} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("epoch %d: non finite loss %v", i, tr)
			}
		}
	}
	if len(reports) != epochs {
		t.Errorf("observer saw %d epochs, want %d", len(reports), epochs)
	}
	if reports[0].Stage != "regression" {
		t.Errorf("stage = %q, want regression", reports[0].Stage)
	}
	if history.StopReason == "" {
		t.Error("stop reason not recorded")
	}

	pred, err := p.Predict(g, data.X, nil, data.Masks.Test)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if r, c := pred.Dims(); r != len(data.Masks.Test) || c != 1 {
		t.Errorf("Predict dims = %dx%d, want %dx1", r, c, len(data.Masks.Test))
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	const n = 40
	g := ringGraph(t, n)
	data := regressionData(n, 2)
	p, err := New(WithLogger(quietLogger()), WithNetwork(GCNNetwork(8, 0, 3)), WithTreesPerEpoch(3))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 2}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	params := make([]*mat.Dense, 0)
	for _, prm := range p.Module().Params() {
		params = append(params, mat.DenseCopyOf(prm.Value))
	}
	a, err := p.Predict(g, data.X, nil, data.Masks.Test)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	b, err := p.Predict(g, data.X, nil, data.Masks.Test)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Error("two Predict calls differ")
	}
	for i, prm := range p.Module().Params() {
		if !mat.Equal(prm.Value, params[i]) {
			t.Errorf("Predict modified parameter %s", prm.Name)
		}
	}
}

func TestFitClassificationDerivesOutDimFromTestMask(t *testing.T) {
	const n = 60
	g := ringGraph(t, n)
	data := classificationData(n, 4)

	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := New(
		WithTask(TaskClassification),
		WithLogger(logger),
		WithNetwork(GCNNetwork(8, 0, 1)),
		WithTreesPerEpoch(3),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seen := map[float64]bool{}
	for _, i := range data.Masks.Test {
		seen[data.Y.At(i, 0)] = true
	}

	history, err := p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 3, MetricName: MetricAccuracy})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if p.OutDim() != len(seen) {
		t.Errorf("OutDim = %d, want %d distinct test labels", p.OutDim(), len(seen))
	}
	if !logger.ContainsMessage("number of classes derived from test labels") {
		t.Error("expected a warning about the derived class count")
	}
	if got := history.Names(); len(got) != 2 || got[0] != MetricLoss || got[1] != MetricAccuracy {
		t.Errorf("Names = %v", got)
	}
	for _, tr := range history.Get(MetricAccuracy) {
		if tr.Train < 0 || tr.Train > 1 {
			t.Errorf("accuracy out of range: %v", tr)
		}
	}

	pred, err := p.Predict(g, data.X, nil, data.Masks.Test)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	for i := 0; i < len(data.Masks.Test); i++ {
		if v := pred.At(i, 0); v != math.Trunc(v) || v < 0 || int(v) >= p.OutDim() {
			t.Errorf("predicted class %v out of range", v)
		}
	}
}

func TestFitClassificationExplicitNumClasses(t *testing.T) {
	const n = 60
	g := ringGraph(t, n)
	data := classificationData(n, 4)
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := New(WithTask(TaskClassification), WithNumClasses(4), WithLogger(logger),
		WithNetwork(GCNNetwork(8, 0, 1)), WithTreesPerEpoch(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 2}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if p.OutDim() != 4 {
		t.Errorf("OutDim = %d, want 4", p.OutDim())
	}
	if logger.ContainsMessage("derived from test labels") {
		t.Error("explicit class count should not be derived")
	}
}

func TestFitConvergenceStop(t *testing.T) {
	// the feature tensor is not optimised, so the residual targets are all zero
	const n = 30
	g := ringGraph(t, n)
	p, err := New(WithLogger(quietLogger()), WithOptimizeNodeFeatures(false),
		WithNetwork(GCNNetwork(4, 0, 1)), WithTreesPerEpoch(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	history, err := p.Fit(context.Background(), g, regressionData(n, 5), FitConfig{NumEpochs: 10})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if history.Len(MetricLoss) != 1 {
		t.Errorf("recorded %d epochs, want 1", history.Len(MetricLoss))
	}
	if history.StopReason != StopConverged {
		t.Errorf("StopReason = %q, want %q", history.StopReason, StopConverged)
	}
}

func TestFitEarlyStoppingPatience(t *testing.T) {
	const n = 30
	g := ringGraph(t, n)
	data := regressionData(n, 6)

	p, err := New(WithLogger(quietLogger()), WithNetwork(frozenNetwork), WithTreesPerEpoch(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	history, err := p.Fit(context.Background(), g, data, FitConfig{
		NumEpochs:  20,
		Patience:   2,
		MetricName: MetricLoss,
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if history.StopReason != StopEarlyStopping {
		t.Fatalf("StopReason = %q, want %q", history.StopReason, StopEarlyStopping)
	}
	if history.BestEpoch != 0 {
		t.Errorf("BestEpoch = %d, want 0", history.BestEpoch)
	}
	// the counter must exceed patience, so training stops patience+1 epochs after the best
	if got := history.Len(MetricLoss); got != 4 {
		t.Errorf("recorded %d epochs, want 4", got)
	}
}

func TestFitValidation(t *testing.T) {
	g := ringGraph(t, 10)
	data := regressionData(10, 1)
	p, err := New(WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		name string
		data Dataset
		fc   FitConfig
	}{
		{"zero epochs", data, FitConfig{}},
		{"empty train", Dataset{X: data.X, Y: data.Y, Masks: Masks{Val: []int{1}, Test: []int{2}}}, FitConfig{NumEpochs: 1}},
		{"index out of range", Dataset{X: data.X, Y: data.Y, Masks: Masks{Train: []int{10}, Val: []int{1}, Test: []int{2}}}, FitConfig{NumEpochs: 1}},
		{"unknown metric", data, FitConfig{NumEpochs: 1, MetricName: "accuracy"}},
		{"row mismatch", Dataset{X: mat.NewDense(9, 2, nil), Y: data.Y, Masks: data.Masks}, FitConfig{NumEpochs: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Fit(context.Background(), g, tt.data, tt.fc); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFitClassificationMissingTestClass(t *testing.T) {
	const n = 60
	g := ringGraph(t, n)
	data := classificationData(n, 4)
	// the test rows hold only classes 0 and 1
	for _, i := range data.Masks.Test {
		if data.Y.At(i, 0) == 2 {
			data.Y.Set(i, 0, 1)
		}
	}

	p, err := New(
		WithTask(TaskClassification),
		WithLogger(quietLogger()),
		WithNetwork(GCNNetwork(8, 0, 1)),
		WithTreesPerEpoch(2),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 2})
	if p.OutDim() != 2 {
		t.Errorf("OutDim = %d, want 2", p.OutDim())
	}
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.ParamName != "num_classes" || !strings.Contains(ve.Reason, "WithNumClasses") {
		t.Errorf("ValidationError = %+v, want a hint to set num_classes", ve)
	}

	// an explicit class count fits the same data
	p, err = New(
		WithTask(TaskClassification),
		WithLogger(quietLogger()),
		WithNetwork(GCNNetwork(8, 0, 1)),
		WithTreesPerEpoch(2),
		WithNumClasses(3),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := p.Fit(context.Background(), g, data, FitConfig{NumEpochs: 2}); err != nil {
		t.Fatalf("Fit with explicit classes failed: %v", err)
	}
	if p.OutDim() != 3 {
		t.Errorf("OutDim = %d, want 3", p.OutDim())
	}
}

func TestFitRejectsNonFiniteTreePredictions(t *testing.T) {
	g := ringGraph(t, 10)
	p, err := New(WithLogger(quietLogger()), WithBooster(nanBooster{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = p.Fit(context.Background(), g, regressionData(10, 1), FitConfig{NumEpochs: 2})
	var ne *errors.NumericalInstabilityError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want NumericalInstabilityError", err)
	}
	if ne.Iteration != 0 {
		t.Errorf("Iteration = %d, want 0", ne.Iteration)
	}
}

func TestFitBoosterFailureNamesEpoch(t *testing.T) {
	g := ringGraph(t, 10)
	p, err := New(WithLogger(quietLogger()), WithBooster(failingBooster{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = p.Fit(context.Background(), g, regressionData(10, 1), FitConfig{NumEpochs: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "epoch 0") {
		t.Errorf("error %q does not name the epoch", err)
	}
}

func TestFitCanceledContext(t *testing.T) {
	g := ringGraph(t, 10)
	p, err := New(WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	history, err := p.Fit(ctx, g, regressionData(10, 1), FitConfig{NumEpochs: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if history == nil || history.StopReason != StopCanceled {
		t.Errorf("history = %+v, want canceled history", history)
	}
}

func TestPredictBeforeFit(t *testing.T) {
	p, err := New(WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	g, _ := gnn.NewGraph(2, nil)
	_, err = p.Predict(g, mat.NewDense(2, 1, nil), nil, []int{0})
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("err = %v, want NotFittedError", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"unknown task", []Option{WithTask("ranking")}},
		{"zero trees", []Option{WithTreesPerEpoch(0)}},
		{"zero backprop", []Option{WithBackpropPerEpoch(0)}},
		{"negative lr", []Option{WithLearningRate(-1)}},
		{"one class", []Option{WithNumClasses(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
