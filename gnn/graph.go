package gnn

import (
	"math"

	"github.com/YuminosukeSato/bgnn/core/parallel"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// rows per goroutine below which propagation stays sequential
const propagateThreshold = 512

// Edge is a directed edge; messages flow from Src to Dst.
type Edge struct {
	Src, Dst int
}

// Graph is an immutable adjacency with symmetric degree normalisation
// w(u,v) = 1/sqrt(outdeg(u) * indeg(v)), degrees clamped to at least one.
type Graph struct {
	numNodes int
	numEdges int

	// incoming edges grouped by destination
	inOffsets []int
	inSrc     []int
	inWeight  []float64

	// outgoing edges grouped by source
	outOffsets []int
	outDst     []int
	outWeight  []float64
}

type graphOptions struct {
	selfLoops  bool
	undirected bool
}

// GraphOption configures NewGraph.
type GraphOption func(*graphOptions)

// WithSelfLoops adds an edge (v, v) for every node that does not have one.
func WithSelfLoops() GraphOption {
	return func(o *graphOptions) { o.selfLoops = true }
}

// WithUndirected adds the reverse of every edge that is not a self-loop.
func WithUndirected() GraphOption {
	return func(o *graphOptions) { o.undirected = true }
}

// NewGraph builds a graph over numNodes nodes.
func NewGraph(numNodes int, edges []Edge, opts ...GraphOption) (*Graph, error) {
	if numNodes <= 0 {
		return nil, errors.NewValidationError("numNodes", "must be positive", numNodes)
	}
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}

	all := make([]Edge, 0, len(edges)*2+numNodes)
	hasLoop := make([]bool, numNodes)
	for _, e := range edges {
		if e.Src < 0 || e.Src >= numNodes || e.Dst < 0 || e.Dst >= numNodes {
			return nil, errors.NewValidationError("edges", "node index out of range", e)
		}
		all = append(all, e)
		if e.Src == e.Dst {
			hasLoop[e.Src] = true
		} else if o.undirected {
			all = append(all, Edge{Src: e.Dst, Dst: e.Src})
		}
	}
	if o.selfLoops {
		for v := 0; v < numNodes; v++ {
			if !hasLoop[v] {
				all = append(all, Edge{Src: v, Dst: v})
			}
		}
	}

	outDeg := make([]int, numNodes)
	inDeg := make([]int, numNodes)
	for _, e := range all {
		outDeg[e.Src]++
		inDeg[e.Dst]++
	}

	g := &Graph{
		numNodes:   numNodes,
		numEdges:   len(all),
		inOffsets:  prefixSum(inDeg),
		outOffsets: prefixSum(outDeg),
		inSrc:      make([]int, len(all)),
		inWeight:   make([]float64, len(all)),
		outDst:     make([]int, len(all)),
		outWeight:  make([]float64, len(all)),
	}
	inPos := append([]int(nil), g.inOffsets[:numNodes]...)
	outPos := append([]int(nil), g.outOffsets[:numNodes]...)
	for _, e := range all {
		w := 1 / math.Sqrt(float64(max(outDeg[e.Src], 1))*float64(max(inDeg[e.Dst], 1)))

		g.inSrc[inPos[e.Dst]] = e.Src
		g.inWeight[inPos[e.Dst]] = w
		inPos[e.Dst]++

		g.outDst[outPos[e.Src]] = e.Dst
		g.outWeight[outPos[e.Src]] = w
		outPos[e.Src]++
	}
	return g, nil
}

func prefixSum(deg []int) []int {
	off := make([]int, len(deg)+1)
	for i, d := range deg {
		off[i+1] = off[i] + d
	}
	return off
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges returns the number of edges after self-loops and reverse edges were added.
func (g *Graph) NumEdges() int { return g.numEdges }

// Propagate returns ÂH: row v is the weighted sum of the rows of its in-neighbours.
func (g *Graph) Propagate(h *mat.Dense) (*mat.Dense, error) {
	return g.spmm("Graph.Propagate", h, g.inOffsets, g.inSrc, g.inWeight)
}

// PropagateTranspose returns ÂᵀH, the adjoint of Propagate used in backward passes.
func (g *Graph) PropagateTranspose(h *mat.Dense) (*mat.Dense, error) {
	return g.spmm("Graph.PropagateTranspose", h, g.outOffsets, g.outDst, g.outWeight)
}

func (g *Graph) spmm(op string, h *mat.Dense, offsets, nbr []int, weight []float64) (*mat.Dense, error) {
	r, c := h.Dims()
	if r != g.numNodes {
		return nil, errors.NewDimensionError(op, g.numNodes, r, 0)
	}
	out := mat.NewDense(r, c, nil)
	parallel.ParallelizeWithThreshold(r, propagateThreshold, func(start, end int) {
		for v := start; v < end; v++ {
			dst := out.RawRowView(v)
			for k := offsets[v]; k < offsets[v+1]; k++ {
				src := h.RawRowView(nbr[k])
				w := weight[k]
				for j, x := range src {
					dst[j] += w * x
				}
			}
		}
	})
	return out, nil
}
