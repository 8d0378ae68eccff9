// Package preprocessing provides the feature transforms applied to node features
// before co-training. Every transform is fitted on the training rows only and then
// applied to the remaining rows.
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/bgnn/core/model"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler is a column-wise transform fitted on a design matrix.
type Scaler interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewStandardScaler は新しいStandardScalerを作成する
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)

		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if s.Scale[j] < 1e-8 {
			s.Scale[j] = 1.0
		}
	}

	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return "StandardScaler()"
	}
	return fmt.Sprintf("StandardScaler(n_features=%d)", s.NFeatures)
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// データを指定した範囲（デフォルト[0,1]）にスケーリングする
type MinMaxScaler struct {
	model.BaseEstimator

	// Scale は各特徴量のスケール (max - min)
	Scale []float64

	// DataMin は学習データの最小値
	DataMin []float64

	// DataMax は学習データの最大値
	DataMax []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureRange はスケーリング後の範囲 [min, max]
	FeatureRange [2]float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0.0, 1.0})
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault はデフォルト設定([0,1]範囲)でMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit は訓練データから最小値・最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if math.IsInf(lo, 1) {
			// 全て欠損値の列
			lo, hi = 0, 0
		}
		m.DataMin[j] = lo
		m.DataMax[j] = hi

		// 定数特徴量の場合、スケールを1に設定
		if dataRange := hi - lo; dataRange < 1e-8 {
			m.Scale[j] = 1.0
		} else {
			m.Scale[j] = dataRange
		}
	}

	m.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータをスケーリングする. Missing values
// stay missing.
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.RequireFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	featureRange := m.FeatureRange[1] - m.FeatureRange[0]
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*featureRange + m.FeatureRange[0]
	}, X)
	return result, nil
}

// String はスケーラーの文字列表現を返す
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f])",
			m.FeatureRange[0], m.FeatureRange[1])
	}
	return fmt.Sprintf("MinMaxScaler(feature_range=[%.1f, %.1f], n_features=%d)",
		m.FeatureRange[0], m.FeatureRange[1], m.NFeatures)
}

// NormalizeFeatures fits scaler on the train rows of X and then transforms the
// train rows and every row listed in apply. Rows in neither set are copied
// unchanged. X itself is not modified.
func NormalizeFeatures(X mat.Matrix, scaler Scaler, train []int, apply ...[]int) (*mat.Dense, error) {
	if len(train) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "NormalizeFeatures: train rows")
	}
	out := mat.DenseCopyOf(X)

	trainX, err := SelectRows(X, train)
	if err != nil {
		return nil, err
	}
	if err := scaler.Fit(trainX); err != nil {
		return nil, err
	}

	rows := append([]int(nil), train...)
	for _, a := range apply {
		rows = append(rows, a...)
	}
	subset, err := SelectRows(X, rows)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(subset)
	if err != nil {
		return nil, err
	}
	for k, i := range rows {
		out.SetRow(i, mat.Row(nil, k, scaled))
	}
	return out, nil
}

// SelectRows copies the listed rows of X into a new matrix, in order.
func SelectRows(X mat.Matrix, rows []int) (*mat.Dense, error) {
	r, c := X.Dims()
	if len(rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "SelectRows")
	}
	out := mat.NewDense(len(rows), c, nil)
	for k, i := range rows {
		if i < 0 || i >= r {
			return nil, errors.NewValidationError("rows", "row index out of range", i)
		}
		for j := 0; j < c; j++ {
			out.Set(k, j, X.At(i, j))
		}
	}
	return out, nil
}
