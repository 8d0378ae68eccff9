// Package metrics provides the evaluation metrics reported by the co-training loop.
//
// Every function accepts n × k matrices (a *mat.VecDense is an n × 1 matrix) and
// averages over all elements unless stated otherwise.
package metrics

import (
	"math"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkPair validates that yTrue and yPred are non-empty and of the same shape.
func checkPair(op string, yTrue, yPred mat.Matrix) (rows, cols int, err error) {
	if yTrue == nil || yPred == nil {
		return 0, 0, errors.NewValueError(op, "nil input")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return 0, 0, errors.NewValueError(op, "empty input")
	}
	if rTrue != rPred {
		return 0, 0, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != cPred {
		return 0, 0, errors.NewDimensionError(op, cTrue, cPred, 1)
	}
	return rTrue, cTrue, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	rows, cols, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(rows*cols), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// StableRMSE returns sqrt(MSE + 1e-8), finite and differentiable at zero error.
func StableRMSE(yTrue, yPred mat.Matrix) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse + 1e-8), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Matrix) (float64, error) {
	rows, cols, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum += math.Abs(yTrue.At(i, j) - yPred.At(i, j))
		}
	}
	return sum / float64(rows*cols), nil
}

// logFloor keeps log1p finite for values at or below -1.
const logFloor = -1 + 1e-7

// RMSLE returns sqrt(mean((log(1+pred) - log(1+true))²) + 1e-8). Values at or
// below -1 are clamped to just above -1.
func RMSLE(yTrue, yPred mat.Matrix) (float64, error) {
	rows, cols, err := checkPair("RMSLE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			diff := math.Log1p(math.Max(yPred.At(i, j), logFloor)) -
				math.Log1p(math.Max(yTrue.At(i, j), logFloor))
			sum += diff * diff
		}
	}
	return math.Sqrt(sum/float64(rows*cols) + 1e-8), nil
}

// R2Score は決定係数（R²）を計算する
//
// Multiple columns are scored independently and averaged uniformly. A column with
// no variance in yTrue scores 1 when predicted exactly and 0 otherwise, and an
// UndefinedMetricWarning is emitted.
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	rows, cols, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for j := 0; j < cols; j++ {
		var yMean float64
		for i := 0; i < rows; i++ {
			yMean += yTrue.At(i, j)
		}
		yMean /= float64(rows)

		// 全変動（TSS）と残差変動（RSS）を計算
		var tss, rss float64
		for i := 0; i < rows; i++ {
			yt := yTrue.At(i, j)
			yp := yPred.At(i, j)
			tss += (yt - yMean) * (yt - yMean)
			rss += (yt - yp) * (yt - yp)
		}

		if tss == 0 {
			score := 0.0
			if rss == 0 {
				score = 1.0
			}
			errors.Warn(errors.NewUndefinedMetricWarning("r2", "no variance in yTrue", score))
			total += score
			continue
		}
		total += 1 - rss/tss
	}
	return total / float64(cols), nil
}
