package lightgbm

import (
	"math"
	"slices"

	"github.com/YuminosukeSato/bgnn/core/parallel"
	"github.com/YuminosukeSato/bgnn/pkg/errors"
	"github.com/YuminosukeSato/bgnn/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// parallelFeatureThreshold is the feature count below which split search runs on
// the calling goroutine.
const parallelFeatureThreshold = 8

// Trainer implements the boosting loop.
type Trainer struct {
	params TrainingParams

	// Column-major copy of the design matrix for split search.
	columns [][]float64
	targets []float64
	rows    int

	categorical map[int]bool

	// Gradient and Hessian, NumOutputs values per row
	gradients []float64
	hessians  []float64

	// scores caches the raw ensemble output on the training rows so gradients do
	// not require re-walking every tree.
	scores []float64

	trees      []Tree
	initScores []float64
	iteration  int

	objective ObjectiveFunction
	sampler   *featureSampler
	logger    log.Logger
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature     int
	Threshold   float64
	Categories  []int
	Categorical bool
	DefaultLeft bool
	Gain        float64
	LeftCount   int
	RightCount  int
}

func noSplit(feature int) SplitInfo {
	return SplitInfo{Feature: feature, Gain: math.Inf(-1)}
}

// NewTrainer creates a trainer. Zero fields of params take their defaults.
func NewTrainer(params TrainingParams) *Trainer {
	params = params.withDefaults()
	categorical := make(map[int]bool, len(params.CategoricalFeatures))
	for _, c := range params.CategoricalFeatures {
		categorical[c] = true
	}
	return &Trainer{
		params:      params,
		categorical: categorical,
		sampler:     newFeatureSampler(params),
		logger:      log.GetLoggerWithName("lightgbm.trainer"),
	}
}

// Fit trains the ensemble. y holds a single column: the regression target, or the
// class index for the multiclass objective.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	if err := t.params.Validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "Trainer.Fit")
	}
	if rows != yRows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}

	objective, err := CreateObjectiveFunction(t.params)
	if err != nil {
		return err
	}
	t.objective = objective

	t.rows = rows
	t.targets = make([]float64, rows)
	mat.Col(t.targets, 0, y)
	if err := t.checkTargets(); err != nil {
		return err
	}
	t.columns = make([][]float64, cols)
	for j := range t.columns {
		t.columns[j] = mat.Col(nil, j, X)
	}

	k := objective.NumOutputs()
	t.gradients = make([]float64, rows*k)
	t.hessians = make([]float64, rows*k)
	t.scores = make([]float64, rows*k)
	t.initScores = objective.InitScores(t.targets)
	for i := 0; i < rows; i++ {
		copy(t.scores[i*k:(i+1)*k], t.initScores)
	}
	t.trees = t.trees[:0]

	grad := make([]float64, rows)
	hess := make([]float64, rows)
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		objective.Gradients(t.scores, t.targets, t.gradients, t.hessians)

		for class := 0; class < k; class++ {
			for i := 0; i < rows; i++ {
				grad[i] = t.gradients[i*k+class]
				hess[i] = t.hessians[i*k+class]
			}
			t.trees = append(t.trees, t.buildTree(grad, hess, class))
		}

		if t.params.Verbosity > 0 {
			loss := objective.Loss(t.scores, t.targets)
			if err := errors.CheckScalar("lightgbm.loss", loss, iter); err != nil {
				return err
			}
			t.logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
			)
		}
	}
	return nil
}

func (t *Trainer) checkTargets() error {
	if ObjectiveType(t.params.Objective) != MulticlassSoftmax {
		for i, v := range t.targets {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValidationError("y", "target must be finite", []any{i, v})
			}
		}
		return nil
	}
	for i, v := range t.targets {
		if v != math.Trunc(v) || v < 0 || int(v) >= t.params.NumClass {
			return errors.NewValidationError("y",
				"class label must be an integer in [0, num_class)", []any{i, v})
		}
	}
	return nil
}

// treeBuilder holds the state of one tree under construction.
type treeBuilder struct {
	tree   Tree
	grad   []float64
	hess   []float64
	leaves int
}

func (t *Trainer) buildTree(grad, hess []float64, class int) Tree {
	b := &treeBuilder{
		tree: Tree{
			TreeIndex:     len(t.trees),
			Class:         class,
			ShrinkageRate: t.params.LearningRate,
		},
		grad:   grad,
		hess:   hess,
		leaves: 1,
	}

	indices := make([]int, t.rows)
	for i := range indices {
		indices[i] = i
	}
	features := t.sampler.sample(len(t.columns))
	t.buildNode(b, indices, features, -1, 0)
	b.tree.NumLeaves = b.leaves
	return b.tree
}

// buildNode grows the subtree for indices depth first and returns its node ID.
func (t *Trainer) buildNode(b *treeBuilder, indices, features []int, parentID, depth int) int {
	nodeID := len(b.tree.Nodes)

	canSplit := (t.params.MaxDepth <= 0 || depth < t.params.MaxDepth) &&
		len(indices) >= 2*t.params.MinDataInLeaf &&
		b.leaves < t.params.NumLeaves
	if !canSplit {
		return t.makeLeaf(b, indices, parentID)
	}

	best := t.findBestSplit(b, indices, features)
	if math.IsInf(best.Gain, -1) || best.Gain <= t.params.MinGainToSplit {
		return t.makeLeaf(b, indices, parentID)
	}

	node := Node{
		NodeID:       nodeID,
		ParentID:     parentID,
		NodeType:     NumericalNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		DefaultLeft:  best.DefaultLeft,
		Gain:         best.Gain,
	}
	if best.Categorical {
		node.NodeType = CategoricalNode
		node.Categories = best.Categories
	}
	b.tree.Nodes = append(b.tree.Nodes, node)
	b.leaves++

	column := t.columns[best.Feature]
	left := make([]int, 0, best.LeftCount)
	right := make([]int, 0, best.RightCount)
	for _, idx := range indices {
		if node.goesLeft(column[idx]) {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	leftID := t.buildNode(b, left, features, nodeID, depth+1)
	rightID := t.buildNode(b, right, features, nodeID, depth+1)
	b.tree.Nodes[nodeID].LeftChild = leftID
	b.tree.Nodes[nodeID].RightChild = rightID
	return nodeID
}

// makeLeaf appends a leaf and adds its shrunken value to the cached scores.
func (t *Trainer) makeLeaf(b *treeBuilder, indices []int, parentID int) int {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += b.grad[idx]
		sumHess += b.hess[idx]
	}
	value := t.leafValue(sumGrad, sumHess)

	nodeID := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		NodeID:     nodeID,
		ParentID:   parentID,
		NodeType:   LeafNode,
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  value,
		LeafCount:  len(indices),
	})

	k := t.objective.NumOutputs()
	delta := value * b.tree.ShrinkageRate
	for _, idx := range indices {
		t.scores[idx*k+b.tree.Class] += delta
	}
	return nodeID
}

// leafValue is the Newton step -G/(H+lambda).
func (t *Trainer) leafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + t.params.Lambda
	if denom < 1e-10 {
		denom = 1e-10
	}
	return -sumGrad / denom
}

// score is G²/(H+lambda).
func (t *Trainer) score(sumGrad, sumHess float64) float64 {
	denom := sumHess + t.params.Lambda
	if denom <= 0 {
		return 0
	}
	return sumGrad * sumGrad / denom
}

// splitGain calculates the LightGBM split gain.
func (t *Trainer) splitGain(leftGrad, leftHess, rightGrad, rightHess float64) float64 {
	return 0.5 * (t.score(leftGrad, leftHess) + t.score(rightGrad, rightHess) -
		t.score(leftGrad+rightGrad, leftHess+rightHess))
}

// findBestSplit evaluates every sampled feature and keeps the largest gain. Ties
// go to the lower feature index.
func (t *Trainer) findBestSplit(b *treeBuilder, indices, features []int) SplitInfo {
	results := make([]SplitInfo, len(features))
	parallel.ParallelizeWithThreshold(len(features), parallelFeatureThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			f := features[i]
			if t.categorical[f] {
				results[i] = t.findBestCategoricalSplit(b, indices, f)
			} else {
				results[i] = t.findBestNumericalSplit(b, indices, f)
			}
		}
	})

	best := noSplit(-1)
	for _, s := range results {
		if s.Gain > best.Gain {
			best = s
		}
	}
	return best
}

type valueIndex struct {
	value float64
	idx   int
}

// findBestNumericalSplit scans thresholds between consecutive distinct values.
// Missing values always go to the left child.
func (t *Trainer) findBestNumericalSplit(b *treeBuilder, indices []int, feature int) SplitInfo {
	column := t.columns[feature]
	values := make([]valueIndex, 0, len(indices))

	nanGrad, nanHess, nanCount := 0.0, 0.0, 0
	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range indices {
		totalGrad += b.grad[idx]
		totalHess += b.hess[idx]
		v := column[idx]
		if math.IsNaN(v) {
			nanGrad += b.grad[idx]
			nanHess += b.hess[idx]
			nanCount++
			continue
		}
		values = append(values, valueIndex{value: v, idx: idx})
	}
	slices.SortFunc(values, func(a, b valueIndex) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		}
		return a.idx - b.idx
	})

	best := noSplit(feature)
	minData := t.params.MinDataInLeaf
	total := len(indices)

	consider := func(leftGrad, leftHess float64, leftCount int, threshold float64) {
		rightCount := total - leftCount
		if leftCount < minData || rightCount < minData {
			return
		}
		gain := t.splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess)
		if gain > best.Gain {
			best.Gain = gain
			best.Threshold = threshold
			best.LeftCount = leftCount
			best.RightCount = rightCount
			best.DefaultLeft = true
		}
	}

	// missing values alone on the left
	if nanCount > 0 && len(values) > 0 {
		consider(nanGrad, nanHess, nanCount, math.Inf(-1))
	}

	leftGrad, leftHess, leftCount := nanGrad, nanHess, nanCount
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += b.grad[idx]
		leftHess += b.hess[idx]
		leftCount++

		if values[i].value == values[i+1].value {
			continue
		}
		consider(leftGrad, leftHess, leftCount, (values[i].value+values[i+1].value)/2)
	}
	return best
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	numClass := 1
	if ObjectiveType(t.params.Objective) == MulticlassSoftmax {
		numClass = t.params.NumClass
	}
	trees := make([]Tree, len(t.trees))
	copy(trees, t.trees)
	return &Model{
		Objective:    ObjectiveType(t.params.Objective),
		NumClass:     numClass,
		NumIteration: t.params.NumIterations,
		LearningRate: t.params.LearningRate,
		NumFeatures:  len(t.columns),
		Trees:        trees,
		InitScores:   slices.Clone(t.initScores),
	}
}

// TrainingScores returns a copy of the cached raw scores on the training rows,
// NumOutputs values per row.
func (t *Trainer) TrainingScores() []float64 {
	return slices.Clone(t.scores)
}
