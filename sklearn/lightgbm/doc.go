// Package lightgbm implements a small pure Go gradient boosting trainer in the
// style of LightGBM, used as the tree stage of the bgnn co-training loop.
//
// Trees are grown depth first with an exact split search over sorted feature
// values. Leaf and depth limits, L2 regularization, a minimum number of rows per
// leaf, categorical set splits and missing values (sent to the left child) are
// supported. Two objectives are available:
//
//   - "regression": squared error on a single target column
//   - "multiclass": softmax cross-entropy over NumClass classes, one tree per class
//     and iteration
//
// # Regression
//
//	reg := lightgbm.NewLGBMRegressor().
//	    WithNumIterations(10).
//	    WithMaxDepth(6)
//	if err := reg.Fit(X, y); err != nil {
//	    return err
//	}
//	pred, _ := reg.Predict(X)
//
// Several target columns are fitted with MultiOutputRegressor, which trains one
// regressor per column concurrently.
//
// # Classification
//
//	clf := lightgbm.NewLGBMClassifier(3)
//	if err := clf.Fit(X, labels); err != nil {
//	    return err
//	}
//	proba, _ := clf.PredictProba(X)
//
// Labels must be integer class indices in [0, NumClass).
package lightgbm
