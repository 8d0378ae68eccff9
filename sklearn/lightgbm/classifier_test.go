package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// threeClassData places class c on x in [c, c+1).
func threeClassData(perClass int) (*mat.Dense, *mat.Dense) {
	n := 3 * perClass
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		c := i % 3
		X.Set(i, 0, float64(c)+float64(i/3)/float64(perClass))
		X.Set(i, 1, float64(i%5))
		y.Set(i, 0, float64(c))
	}
	return X, y
}

func TestLGBMClassifierMulticlass(t *testing.T) {
	X, y := threeClassData(20)

	clf := NewLGBMClassifier(3)
	clf.NumIterations = 20
	clf.MinChildSamples = 1
	clf.MaxDepth = 3
	require.NoError(t, clf.Fit(X, y))
	assert.Equal(t, 3, clf.NumClasses())

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 60, rows)
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += proba.At(i, j)
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	pred, err := clf.Predict(X)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		assert.Equal(t, y.At(i, 0), pred.At(i, 0), "row %d", i)
	}

	// one tree per class and iteration
	assert.Len(t, clf.Model.Trees, 60)
}

func TestLGBMClassifierRejectsInvalidLabels(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	clf := NewLGBMClassifier(2)
	assert.Error(t, clf.Fit(X, mat.NewDense(4, 1, []float64{0, 1, 2, 1})))
	assert.Error(t, clf.Fit(X, mat.NewDense(4, 1, []float64{0, 0.5, 1, 1})))
	assert.False(t, clf.IsFitted())

	assert.Error(t, NewLGBMClassifier(1).Fit(X, mat.NewDense(4, 1, nil)))
}

func TestModelFeatureImportance(t *testing.T) {
	X, y := threeClassData(10)
	clf := NewLGBMClassifier(3)
	clf.NumIterations = 3
	clf.MinChildSamples = 1
	require.NoError(t, clf.Fit(X, y))

	imp := clf.Model.GetFeatureImportance("split")
	require.Len(t, imp, 2)
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-12)
	assert.Greater(t, imp[0], imp[1])
}
