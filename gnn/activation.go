package gnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation is an element-wise nonlinearity.
type Activation int

const (
	// Identity passes values through.
	Identity Activation = iota
	// ELU is x for x > 0 and exp(x)-1 otherwise.
	ELU
)

func (a Activation) String() string {
	switch a {
	case ELU:
		return "elu"
	default:
		return "identity"
	}
}

func (a Activation) apply(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	if a == Identity {
		out.Copy(z)
		return out
	}
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return math.Expm1(v)
	}, z)
	return out
}

// backward multiplies dOut by the derivative at the pre-activation z.
func (a Activation) backward(z, dOut *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	if a == Identity {
		out.Copy(dOut)
		return out
	}
	out.Apply(func(i, j int, g float64) float64 {
		if v := z.At(i, j); v <= 0 {
			return g * math.Exp(v)
		}
		return g
	}, dOut)
	return out
}
