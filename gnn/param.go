package gnn

import "gonum.org/v1/gonum/mat"

// Param is a trainable tensor with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// NewParam wraps value; the gradient starts at zero.
func NewParam(name string, value *mat.Dense) *Param {
	r, c := value.Dims()
	return &Param{Name: name, Value: value, Grad: mat.NewDense(r, c, nil)}
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// AccumulateGrad adds g to the gradient.
func (p *Param) AccumulateGrad(g mat.Matrix) {
	p.Grad.Add(p.Grad, g)
}

// Module is a differentiable function of the node features over a graph.
type Module interface {
	// Forward computes the output for every node. train enables dropout.
	Forward(g *Graph, x *mat.Dense, train bool) (*mat.Dense, error)

	// Backward accumulates parameter gradients for the last Forward and
	// returns the gradient with respect to its input.
	Backward(dOut *mat.Dense) (*mat.Dense, error)

	Params() []*Param
}

// Optimizer updates a fixed set of parameters from their gradients.
type Optimizer interface {
	Step()
	ZeroGrad()
}
