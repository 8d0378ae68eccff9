package lightgbm

import (
	"math"
	"slices"

	"github.com/YuminosukeSato/bgnn/core/parallel"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// parallelRowThreshold is the batch size below which prediction stays sequential.
const parallelRowThreshold = 256

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with numerical split
	NumericalNode
	// CategoricalNode represents a node with categorical split
	CategoricalNode
)

// Node represents a single node in a decision tree
type Node struct {
	NodeID     int      // Unique identifier for the node
	ParentID   int      // Parent node ID (-1 for root)
	LeftChild  int      // Left child node ID (-1 if leaf)
	RightChild int      // Right child node ID (-1 if leaf)
	NodeType   NodeType // Type of the node

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Threshold value for numerical splits
	Categories   []int   // Sorted categories sent to the left child
	DefaultLeft  bool    // Default direction for missing values
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64 // Value at leaf node
	LeafCount int     // Number of samples at leaf
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.NodeType == LeafNode
}

// goesLeft reports whether a feature value follows the left branch.
func (n *Node) goesLeft(v float64) bool {
	if math.IsNaN(v) {
		return n.DefaultLeft
	}
	if n.NodeType == CategoricalNode {
		_, found := slices.BinarySearch(n.Categories, int(v))
		return found
	}
	return v <= n.Threshold
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     // Index of the tree in ensemble
	Class         int     // Output slot this tree contributes to
	NumLeaves     int     // Number of leaf nodes
	ShrinkageRate float64 // Learning rate applied to this tree

	Nodes []Node
}

// Predict returns the shrunken leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	return t.leaf(features).LeafValue * t.ShrinkageRate
}

func (t *Tree) leaf(features []float64) *Node {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if node.goesLeft(features[node.SplitFeature]) {
			node = &t.Nodes[node.LeftChild]
		} else {
			node = &t.Nodes[node.RightChild]
		}
	}
	return node
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	// RegressionL2 is squared-error regression.
	RegressionL2 ObjectiveType = "regression"
	// MulticlassSoftmax is softmax cross-entropy classification.
	MulticlassSoftmax ObjectiveType = "multiclass"
)

// Model represents a complete boosted ensemble
type Model struct {
	Objective    ObjectiveType // Objective function
	NumClass     int           // Number of output slots (1 for regression)
	NumIteration int           // Number of boosting iterations
	LearningRate float64       // Base learning rate
	NumFeatures  int           // Number of features

	// Trees, NumClass per iteration for multiclass
	Trees []Tree

	// InitScores holds the starting raw score of each output slot.
	InitScores []float64
}

// numOutputs returns the width of raw scores.
func (m *Model) numOutputs() int {
	if m.Objective == MulticlassSoftmax {
		return m.NumClass
	}
	return 1
}

// PredictRaw returns raw (untransformed) scores, one column per output slot.
func (m *Model) PredictRaw(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.PredictRaw", m.NumFeatures, cols, 1)
	}
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Model.PredictRaw")
	}

	k := m.numOutputs()
	out := mat.NewDense(rows, k, nil)
	parallel.ParallelizeWithThreshold(rows, parallelRowThreshold, func(start, end int) {
		features := make([]float64, cols)
		scores := make([]float64, k)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			m.predictRawSingle(features, scores)
			out.SetRow(i, scores)
		}
	})
	return out, nil
}

func (m *Model) predictRawSingle(features, scores []float64) {
	copy(scores, m.InitScores)
	for i := range m.Trees {
		tree := &m.Trees[i]
		scores[tree.Class] += tree.Predict(features)
	}
}

// Predict returns raw scores for regression and class probabilities for
// multiclass models.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	raw, err := m.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	if m.Objective != MulticlassSoftmax {
		return raw, nil
	}
	rows, k := raw.Dims()
	probs := make([]float64, k)
	for i := 0; i < rows; i++ {
		softmaxInto(probs, raw.RawRowView(i))
		raw.SetRow(i, probs)
	}
	return raw, nil
}

// GetFeatureImportance returns normalized split counts ("split") or gains ("gain")
// per feature.
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			case "gain":
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance
}
