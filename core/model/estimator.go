package model

import "gonum.org/v1/gonum/mat"

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict returns one row of outputs per row of X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilisticClassifier is a classifier exposing per-class probabilities.
type ProbabilisticClassifier interface {
	Predictor

	// PredictProba returns an n_samples × n_classes matrix whose rows sum to one.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// NumClasses returns the number of classes seen during fitting.
	NumClasses() int
}
