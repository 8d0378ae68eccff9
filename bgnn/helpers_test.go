package bgnn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ringGraph connects node i to i+1 and i+7.
func ringGraph(t *testing.T, n int) *gnn.Graph {
	t.Helper()
	edges := make([]gnn.Edge, 0, 2*n)
	for i := 0; i < n; i++ {
		edges = append(edges, gnn.Edge{Src: i, Dst: (i + 1) % n}, gnn.Edge{Src: i, Dst: (i + 7) % n})
	}
	g, err := gnn.NewGraph(n, edges, gnn.WithUndirected(), gnn.WithSelfLoops())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	return g
}

func splitMasks(n int) Masks {
	var m Masks
	for i := 0; i < n; i++ {
		switch {
		case i%5 < 3:
			m.Train = append(m.Train, i)
		case i%5 == 3:
			m.Val = append(m.Val, i)
		default:
			m.Test = append(m.Test, i)
		}
	}
	return m
}

func regressionData(n int, seed uint64) Dataset {
	rng := rand.New(rand.NewPCG(seed, 3))
	X := mat.NewDense(n, 2, nil)
	Y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b})
		Y.Set(i, 0, 2*a-b+0.1*rng.NormFloat64())
	}
	return Dataset{X: X, Y: Y, Masks: splitMasks(n)}
}

// classificationData cycles labels 0, 1, 2 by node index so every split holds
// every class, with the first feature shifted by the label.
func classificationData(n int, seed uint64) Dataset {
	rng := rand.New(rand.NewPCG(seed, 5))
	X := mat.NewDense(n, 2, nil)
	Y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 3)
		X.SetRow(i, []float64{label + 0.3*rng.NormFloat64(), rng.Float64()})
		Y.Set(i, 0, label)
	}
	return Dataset{X: X, Y: Y, Masks: splitMasks(n)}
}

func quietLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

// constantPredictor predicts the same row for every input row.
type constantPredictor struct {
	row []float64
}

func (c constantPredictor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(c.row), nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, c.row)
	}
	return out, nil
}

// failingBooster fails every fit.
type failingBooster struct{}

func (failingBooster) FitRegressor(_, _ mat.Matrix, _ TreeConfig) (model.Predictor, error) {
	return nil, errors.New("booster unavailable")
}

func (failingBooster) FitClassifier(_, _ mat.Matrix, _ int, _ TreeConfig) (model.ProbabilisticClassifier, error) {
	return nil, errors.New("booster unavailable")
}

// nanBooster fits regressors that predict NaN for every row.
type nanBooster struct{}

func (nanBooster) FitRegressor(_, Y mat.Matrix, _ TreeConfig) (model.Predictor, error) {
	_, c := Y.Dims()
	row := make([]float64, c)
	for j := range row {
		row[j] = math.NaN()
	}
	return constantPredictor{row: row}, nil
}

func (nanBooster) FitClassifier(_, _ mat.Matrix, _ int, _ TreeConfig) (model.ProbabilisticClassifier, error) {
	return nil, errors.New("not supported")
}

// frozenOutput predicts zeros whatever the features are, while reporting a unit
// gradient for every input. The features keep moving but no metric changes.
type frozenOutput struct {
	outDim int
	rows   int
	cols   int
}

func frozenNetwork(_, outDim int) (gnn.Module, error) {
	return &frozenOutput{outDim: outDim}, nil
}

func (f *frozenOutput) Forward(g *gnn.Graph, x *mat.Dense, _ bool) (*mat.Dense, error) {
	f.rows, f.cols = x.Dims()
	return mat.NewDense(g.NumNodes(), f.outDim, nil), nil
}

func (f *frozenOutput) Backward(_ *mat.Dense) (*mat.Dense, error) {
	dX := mat.NewDense(f.rows, f.cols, nil)
	for i := 0; i < f.rows; i++ {
		for j := 0; j < f.cols; j++ {
			dX.Set(i, j, 1)
		}
	}
	return dX, nil
}

func (f *frozenOutput) Params() []*gnn.Param { return nil }
