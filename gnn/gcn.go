package gnn

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GCNConfig describes a two layer graph convolutional network.
type GCNConfig struct {
	InDim     int
	HiddenDim int
	OutDim    int

	// Dropout is applied to the input features during training.
	Dropout float64

	// OutputActivation is applied after the second layer; the zero value is
	// Identity. The hidden layer always uses ELU. The published Boost-GNN GCN
	// applies ELU to its output layer too, so it never predicts below -1; set ELU
	// here for the same network.
	OutputActivation Activation

	Seed uint64
}

// GCN is dropout, GraphConv(ELU) and GraphConv.
type GCN struct {
	Config GCNConfig

	drop *Dropout
	l1   *GraphConv
	l2   *GraphConv
}

// NewGCN validates cfg and initialises the layers from cfg.Seed.
func NewGCN(cfg GCNConfig) (*GCN, error) {
	if cfg.InDim <= 0 {
		return nil, errors.NewValidationError("InDim", "must be positive", cfg.InDim)
	}
	if cfg.HiddenDim <= 0 {
		return nil, errors.NewValidationError("HiddenDim", "must be positive", cfg.HiddenDim)
	}
	if cfg.OutDim <= 0 {
		return nil, errors.NewValidationError("OutDim", "must be positive", cfg.OutDim)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, errors.NewValidationError("Dropout", "must be in [0, 1)", cfg.Dropout)
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	return &GCN{
		Config: cfg,
		drop:   NewDropout(cfg.Dropout, src),
		l1:     NewGraphConv("l1", cfg.InDim, cfg.HiddenDim, ELU, src),
		l2:     NewGraphConv("l2", cfg.HiddenDim, cfg.OutDim, cfg.OutputActivation, src),
	}, nil
}

// Forward runs the network on every node.
func (m *GCN) Forward(g *Graph, x *mat.Dense, train bool) (*mat.Dense, error) {
	h := m.drop.Forward(x, train)
	h, err := m.l1.Forward(g, h)
	if err != nil {
		return nil, err
	}
	return m.l2.Forward(g, h)
}

// Backward back-propagates dOut through the last Forward.
func (m *GCN) Backward(dOut *mat.Dense) (*mat.Dense, error) {
	d, err := m.l2.Backward(dOut)
	if err != nil {
		return nil, err
	}
	d, err = m.l1.Backward(d)
	if err != nil {
		return nil, err
	}
	return m.drop.Backward(d), nil
}

// Params returns the layer parameters in order.
func (m *GCN) Params() []*Param {
	return append(m.l1.Params(), m.l2.Params()...)
}
