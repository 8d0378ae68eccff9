package bgnn

import (
	"github.com/YuminosukeSato/bgnn/gnn"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// featureState owns the node feature tensor fed to the network. In append mode
// columns [0, featureDim) hold the input features and the trailing outDim
// columns the latest ensemble prediction; in replace mode the tensor is the
// prediction alone. The tensor is updated in place so optimizers holding the
// parameter keep seeing it.
type featureState struct {
	param      *gnn.Param
	featureDim int
	outDim     int
	appendMode bool
}

func newFeatureState(X *mat.Dense, outDim int, appendMode bool) *featureState {
	n, featureDim := X.Dims()
	inDim := outDim
	if appendMode {
		inDim += featureDim
	}
	value := mat.NewDense(n, inDim, nil)
	if appendMode {
		value.Slice(0, n, 0, featureDim).(*mat.Dense).Copy(X)
	}
	return &featureState{
		param:      gnn.NewParam("node_features", value),
		featureDim: featureDim,
		outDim:     outDim,
		appendMode: appendMode,
	}
}

func (s *featureState) inDim() int {
	_, c := s.param.Value.Dims()
	return c
}

// value is the live tensor.
func (s *featureState) value() *mat.Dense {
	return s.param.Value
}

// snapshot copies the current tensor.
func (s *featureState) snapshot() *mat.Dense {
	return mat.DenseCopyOf(s.param.Value)
}

// update writes preds into the prediction columns. Unless trainInput is set the
// input feature columns are reset to X. Accumulated gradients are dropped.
func (s *featureState) update(preds mat.Matrix, X *mat.Dense, trainInput bool) error {
	n, _ := s.param.Value.Dims()
	if r, c := preds.Dims(); r != n || c != s.outDim {
		if r != n {
			return errors.NewDimensionError("featureState.update", n, r, 0)
		}
		return errors.NewDimensionError("featureState.update", s.outDim, c, 1)
	}

	if !s.appendMode {
		s.param.Value.Copy(preds)
		s.param.ZeroGrad()
		return nil
	}

	if !trainInput {
		if r, c := X.Dims(); r != n || c != s.featureDim {
			return errors.NewDimensionError("featureState.update", s.featureDim, c, 1)
		}
		s.param.Value.Slice(0, n, 0, s.featureDim).(*mat.Dense).Copy(X)
	}
	s.param.Value.Slice(0, n, s.featureDim, s.featureDim+s.outDim).(*mat.Dense).Copy(preds)
	s.param.ZeroGrad()
	return nil
}
