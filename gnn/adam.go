package gnn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam optimizer with bias correction.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	params []*Param
	m, v   []*mat.Dense
	t      int
}

// NewAdam creates an optimizer over params with betas (0.9, 0.999) and epsilon 1e-8.
func NewAdam(params []*Param, lr float64) *Adam {
	a := &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		params:       params,
		m:            make([]*mat.Dense, len(params)),
		v:            make([]*mat.Dense, len(params)),
	}
	for i, p := range params {
		r, c := p.Value.Dims()
		a.m[i] = mat.NewDense(r, c, nil)
		a.v[i] = mat.NewDense(r, c, nil)
	}
	return a
}

// Steps returns the number of Step calls so far.
func (a *Adam) Steps() int { return a.t }

// ZeroGrad clears the gradients of every parameter.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
}

// Step applies one update from the current gradients.
func (a *Adam) Step() {
	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := math.Sqrt(1 - math.Pow(a.Beta2, float64(a.t)))
	stepSize := a.LearningRate / bc1

	for i, p := range a.params {
		value := p.Value.RawMatrix()
		grad := p.Grad.RawMatrix()
		m := a.m[i].RawMatrix().Data
		v := a.v[i].RawMatrix().Data
		for r := 0; r < value.Rows; r++ {
			vrow := value.Data[r*value.Stride : r*value.Stride+value.Cols]
			grow := grad.Data[r*grad.Stride : r*grad.Stride+grad.Cols]
			for c, g := range grow {
				k := r*value.Cols + c
				m[k] = a.Beta1*m[k] + (1-a.Beta1)*g
				v[k] = a.Beta2*v[k] + (1-a.Beta2)*g*g
				vrow[c] -= stepSize * m[k] / (math.Sqrt(v[k])/bc2 + a.Epsilon)
			}
		}
	}
}
