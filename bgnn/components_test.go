package bgnn

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestResolveStage(t *testing.T) {
	tests := []struct {
		task  Task
		epoch int
		want  treeStage
	}{
		{TaskRegression, 0, stageRegression},
		{TaskRegression, 5, stageRegression},
		{TaskClassification, 0, stageClassificationInitial},
		{TaskClassification, 1, stageClassificationResidual},
	}
	for _, tt := range tests {
		got, err := resolveStage(tt.task, tt.epoch)
		if err != nil {
			t.Fatalf("resolveStage(%s, %d) failed: %v", tt.task, tt.epoch, err)
		}
		if got != tt.want {
			t.Errorf("resolveStage(%s, %d) = %v, want %v", tt.task, tt.epoch, got, tt.want)
		}
	}

	_, err := resolveStage("ranking", 0)
	var ute *errors.UnknownTaskError
	if !errors.As(err, &ute) {
		t.Errorf("err = %v, want UnknownTaskError", err)
	}
}

func TestCombineWeights(t *testing.T) {
	X := mat.NewDense(2, 1, nil)
	tests := []struct {
		name  string
		alpha float64
		want  float64
	}{
		{"alpha zero reproduces prior", 0, 3},
		{"alpha one sums", 1, 3 + 5},
		{"alpha half", 0.5, 3 + 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTreeEnsemble()
			if err := stageRegression.combine(e, constantPredictor{row: []float64{3}}, tt.alpha); err != nil {
				t.Fatalf("combine failed: %v", err)
			}
			if err := stageRegression.combine(e, constantPredictor{row: []float64{5}}, tt.alpha); err != nil {
				t.Fatalf("combine failed: %v", err)
			}
			got, err := e.predict(X)
			if err != nil {
				t.Fatalf("predict failed: %v", err)
			}
			if math.Abs(got.At(0, 0)-tt.want) > 1e-12 {
				t.Errorf("prediction = %v, want %v", got.At(0, 0), tt.want)
			}
			members := e.chain.Members()
			if members[0].Weight != 1 {
				t.Errorf("first member weight = %v, want 1", members[0].Weight)
			}
		})
	}
}

func TestCombineInitialClassificationNeedsClassifier(t *testing.T) {
	e := newTreeEnsemble()
	if err := stageClassificationInitial.combine(e, constantPredictor{row: []float64{1}}, 1); err == nil {
		t.Error("expected error for a plain predictor")
	}
}

func TestTreeEnsembleUnfitted(t *testing.T) {
	if _, err := newTreeEnsemble().predict(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("expected error from an empty ensemble")
	}
}

func TestFeatureStateShapeInvariant(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	preds := mat.NewDense(3, 1, []float64{10, 20, 30})

	tests := []struct {
		name       string
		appendMode bool
		trainInput bool
		wantCols   int
		wantRow0   []float64
	}{
		{"append resets inputs", true, false, 3, []float64{1, 2, 10}},
		{"append keeps trained inputs", true, true, 3, []float64{-1, -1, 10}},
		{"replace", false, false, 1, []float64{10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFeatureState(X, 1, tt.appendMode)
			live := s.value()
			if s.inDim() != tt.wantCols {
				t.Fatalf("inDim = %d, want %d", s.inDim(), tt.wantCols)
			}
			// simulate the optimizer moving the input columns
			if tt.appendMode {
				live.Set(0, 0, -1)
				live.Set(0, 1, -1)
			}
			s.param.Grad.Set(0, 0, 7)

			if err := s.update(preds, X, tt.trainInput); err != nil {
				t.Fatalf("update failed: %v", err)
			}
			if s.value() != live {
				t.Error("update replaced the tensor instead of writing in place")
			}
			if r, c := s.value().Dims(); r != 3 || c != tt.wantCols {
				t.Errorf("dims = %dx%d, want 3x%d", r, c, tt.wantCols)
			}
			for j, w := range tt.wantRow0 {
				if got := s.value().At(0, j); got != w {
					t.Errorf("row 0 col %d = %v, want %v", j, got, w)
				}
			}
			if mat.Sum(s.param.Grad) != 0 {
				t.Error("gradients were not cleared")
			}
		})
	}

	s := newFeatureState(X, 1, true)
	if err := s.update(mat.NewDense(3, 2, nil), X, false); err == nil {
		t.Error("expected error for a prediction of the wrong width")
	}
}

func TestResidualTargets(t *testing.T) {
	before := mat.NewDense(3, 3, []float64{
		1, 1, 1,
		2, 2, 2,
		3, 3, 3,
	})
	after := mat.NewDense(3, 3, []float64{
		9, 1.5, 0,
		9, 2, 2,
		9, 4, 1,
	})
	got, err := residualTargets(after, before, []int{0, 2}, 2)
	if err != nil {
		t.Fatalf("residualTargets failed: %v", err)
	}
	want := mat.NewDense(2, 2, []float64{0.5, -1, 1, -2})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("residuals = %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
	if converged(got) {
		t.Error("non zero residuals reported as converged")
	}
	if !converged(mat.NewDense(2, 1, []float64{1e-9, -1e-9})) {
		t.Error("residuals within tolerance should converge")
	}
	if _, err := residualTargets(after, before, []int{0}, 4); err == nil {
		t.Error("expected error for outDim wider than the tensor")
	}
}

func TestTrackerPatience(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		vals      []float64
		patience  int
		stopAt    int // -1 when no stop
		bestEpoch int
	}{
		{"minimize improves", Minimize, []float64{3, 2, 1}, 1, -1, 2},
		{"stops after patience", Minimize, []float64{1, 2, 2, 2}, 2, 3, 0},
		{"equal is not better", Minimize, []float64{1, 1, 1}, 1, 2, 0},
		{"zero patience never stops", Minimize, []float64{1, 2, 3, 4, 5}, 0, -1, 0},
		{"maximize", Maximize, []float64{0.1, 0.5, 0.4, 0.3}, 1, 3, 1},
		{"auto maximizes r2", DirectionAuto, []float64{0.1, 0.9}, 1, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metric := MetricLoss
			if tt.direction == DirectionAuto {
				metric = MetricR2
			}
			h := NewHistory()
			tr := newTracker(metric, tt.direction, tt.patience)
			stoppedAt := -1
			for epoch, v := range tt.vals {
				h.Append(metric, Triple{Train: v, Val: v, Test: v})
				stop, err := tr.record(epoch, h)
				if err != nil {
					t.Fatalf("record failed: %v", err)
				}
				if stop {
					stoppedAt = epoch
					break
				}
			}
			if stoppedAt != tt.stopAt {
				t.Errorf("stopped at %d, want %d", stoppedAt, tt.stopAt)
			}
			if tr.bestEpoch != tt.bestEpoch {
				t.Errorf("best epoch = %d, want %d", tr.bestEpoch, tt.bestEpoch)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"": DirectionAuto, "min": Minimize, "maximize": Maximize} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("expected error")
	}
}

func TestLossGradients(t *testing.T) {
	tests := []struct {
		name   string
		fn     LossFunc
		pred   *mat.Dense
		target *mat.Dense
	}{
		{"rmse", RMSELoss, mat.NewDense(3, 2, []float64{1, 2, -1, 0.5, 3, 0}), mat.NewDense(3, 2, []float64{0, 2.5, 1, 0, 2, 1})},
		{"cross entropy", CrossEntropyLoss, mat.NewDense(3, 3, []float64{1, 2, 0, -1, 0.5, 0.2, 0, 0, 3}), mat.NewDense(3, 1, []float64{1, 0, 2})},
	}
	const h = 1e-6
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, grad, err := tt.fn(tt.pred, tt.target)
			if err != nil {
				t.Fatalf("loss failed: %v", err)
			}
			r, c := tt.pred.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					orig := tt.pred.At(i, j)
					tt.pred.Set(i, j, orig+h)
					plus, _, _ := tt.fn(tt.pred, tt.target)
					tt.pred.Set(i, j, orig-h)
					minus, _, _ := tt.fn(tt.pred, tt.target)
					tt.pred.Set(i, j, orig)
					if numeric := (plus - minus) / (2 * h); math.Abs(numeric-grad.At(i, j)) > 1e-6 {
						t.Errorf("grad[%d,%d] = %v, numeric %v", i, j, grad.At(i, j), numeric)
					}
				}
			}
		})
	}
}

func TestRMSELossPerfectFitHasZeroGradient(t *testing.T) {
	pred := mat.NewDense(2, 1, []float64{1.5, -2})
	loss, grad, err := RMSELoss(pred, mat.DenseCopyOf(pred))
	if err != nil {
		t.Fatalf("RMSELoss failed: %v", err)
	}
	if loss != 0 {
		t.Errorf("loss = %v, want 0", loss)
	}
	for i := 0; i < 2; i++ {
		if v := grad.At(i, 0); v != 0 || math.IsNaN(v) {
			t.Errorf("grad[%d] = %v, want 0", i, v)
		}
	}
}

func TestCrossEntropyLossRejectsBadLabel(t *testing.T) {
	if _, _, err := CrossEntropyLoss(mat.NewDense(1, 2, nil), mat.NewDense(1, 1, []float64{2})); err == nil {
		t.Error("expected error")
	}
}

func TestDefaultLossUnknownTask(t *testing.T) {
	if _, err := defaultLoss("ranking"); err == nil {
		t.Error("expected error")
	}
}

func TestHistoryJSONKeepsOrder(t *testing.T) {
	h := NewHistory()
	h.Append("loss", Triple{1, 2, 3})
	h.Append("accuracy", Triple{0.5, 0.4, 0.3})
	h.Append("loss", Triple{0.9, 1.9, 2.9})
	h.BestEpoch = 1
	h.StopReason = StopCompleted

	data, err := h.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	var back History
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if names := back.Names(); len(names) != 2 || names[0] != "loss" || names[1] != "accuracy" {
		t.Errorf("Names = %v", names)
	}
	if back.Len("loss") != 2 || back.BestEpoch != 1 || back.StopReason != StopCompleted {
		t.Errorf("round trip lost data: %+v", back)
	}
	if last, _ := back.Last("loss"); last.Val != 1.9 {
		t.Errorf("Last(loss) = %v", last)
	}
}
