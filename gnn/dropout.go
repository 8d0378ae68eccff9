package gnn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dropout zeroes inputs with probability P during training and scales the kept
// values by 1/(1-P).
type Dropout struct {
	P    float64
	keep distuv.Bernoulli
	mask *mat.Dense
}

// NewDropout creates a dropout layer drawing its masks from src.
func NewDropout(p float64, src rand.Source) *Dropout {
	return &Dropout{P: p, keep: distuv.Bernoulli{P: 1 - p, Src: src}}
}

// Forward applies dropout when train is set; otherwise x is returned as is.
func (d *Dropout) Forward(x *mat.Dense, train bool) *mat.Dense {
	if !train || d.P <= 0 {
		d.mask = nil
		return x
	}
	r, c := x.Dims()
	scale := 1 / (1 - d.P)
	d.mask = mat.NewDense(r, c, nil)
	d.mask.Apply(func(_, _ int, _ float64) float64 {
		return d.keep.Rand() * scale
	}, d.mask)

	out := mat.NewDense(r, c, nil)
	out.MulElem(x, d.mask)
	return out
}

// Backward routes gradients through the kept units of the last Forward.
func (d *Dropout) Backward(dOut *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return dOut
	}
	r, c := dOut.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(dOut, d.mask)
	return out
}
