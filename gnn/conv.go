package gnn

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GraphConv is a graph convolution act(ÂXW + b).
type GraphConv struct {
	Weight *Param
	Bias   *Param
	Act    Activation

	graph *Graph
	agg   *mat.Dense // ÂX of the last Forward
	pre   *mat.Dense // ÂXW + b of the last Forward
}

// NewGraphConv creates a layer with Glorot uniform weights and zero bias.
func NewGraphConv(name string, in, out int, act Activation, src rand.Source) *GraphConv {
	limit := math.Sqrt(6 / float64(in+out))
	init := distuv.Uniform{Min: -limit, Max: limit, Src: src}
	w := make([]float64, in*out)
	for i := range w {
		w[i] = init.Rand()
	}
	return &GraphConv{
		Weight: NewParam(name+".weight", mat.NewDense(in, out, w)),
		Bias:   NewParam(name+".bias", mat.NewDense(1, out, nil)),
		Act:    act,
	}
}

// Forward computes the layer output for every node.
func (l *GraphConv) Forward(g *Graph, x *mat.Dense) (*mat.Dense, error) {
	in, out := l.Weight.Value.Dims()
	if _, c := x.Dims(); c != in {
		return nil, errors.NewDimensionError("GraphConv.Forward", in, c, 1)
	}
	agg, err := g.Propagate(x)
	if err != nil {
		return nil, err
	}
	n, _ := agg.Dims()
	pre := mat.NewDense(n, out, nil)
	pre.Mul(agg, l.Weight.Value)
	bias := l.Bias.Value.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(pre.RawRowView(i), bias)
	}

	l.graph, l.agg, l.pre = g, agg, pre
	return l.Act.apply(pre), nil
}

// Backward accumulates weight and bias gradients and returns dL/dX.
func (l *GraphConv) Backward(dOut *mat.Dense) (*mat.Dense, error) {
	if l.pre == nil {
		return nil, errors.NewValueError("GraphConv.Backward", "Backward called before Forward")
	}
	if r, c := dOut.Dims(); r != l.pre.RawMatrix().Rows || c != l.pre.RawMatrix().Cols {
		return nil, errors.NewDimensionError("GraphConv.Backward", l.pre.RawMatrix().Cols, c, 1)
	}
	dPre := l.Act.backward(l.pre, dOut)

	in, out := l.Weight.Value.Dims()
	n, _ := dPre.Dims()

	dW := mat.NewDense(in, out, nil)
	dW.Mul(l.agg.T(), dPre)
	l.Weight.AccumulateGrad(dW)

	db := l.Bias.Grad.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(db, dPre.RawRowView(i))
	}

	dAgg := mat.NewDense(n, in, nil)
	dAgg.Mul(dPre, l.Weight.Value.T())
	return l.graph.PropagateTranspose(dAgg)
}

// Params returns the weight and bias.
func (l *GraphConv) Params() []*Param {
	return []*Param{l.Weight, l.Bias}
}
