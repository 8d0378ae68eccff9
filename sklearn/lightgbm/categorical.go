package lightgbm

import (
	"math"
	"slices"
)

// CategoryInfo stores information about a category
type CategoryInfo struct {
	Category int
	Count    int
	SumGrad  float64
	SumHess  float64
}

// findBestCategoricalSplit orders the categories seen in indices by their
// gradient ratio G/(H+lambda) and scans prefixes of that order as left sets.
// Missing values are sent to the right child.
func (t *Trainer) findBestCategoricalSplit(b *treeBuilder, indices []int, feature int) SplitInfo {
	column := t.columns[feature]
	stats := make(map[int]*CategoryInfo)

	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range indices {
		g, h := b.grad[idx], b.hess[idx]
		totalGrad += g
		totalHess += h

		v := column[idx]
		if math.IsNaN(v) {
			continue
		}
		cat := int(v)
		info, ok := stats[cat]
		if !ok {
			info = &CategoryInfo{Category: cat}
			stats[cat] = info
		}
		info.Count++
		info.SumGrad += g
		info.SumHess += h
	}

	best := noSplit(feature)
	if len(stats) < 2 {
		return best
	}

	categories := make([]*CategoryInfo, 0, len(stats))
	for _, info := range stats {
		categories = append(categories, info)
	}
	lambda := t.params.Lambda
	slices.SortFunc(categories, func(a, b *CategoryInfo) int {
		ra := a.SumGrad / (a.SumHess + lambda + 1e-10)
		rb := b.SumGrad / (b.SumHess + lambda + 1e-10)
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		}
		return a.Category - b.Category
	})

	minData := t.params.MinDataInLeaf
	total := len(indices)
	bestPrefix := 0

	leftGrad, leftHess, leftCount := 0.0, 0.0, 0
	for i := 0; i < len(categories)-1; i++ {
		leftGrad += categories[i].SumGrad
		leftHess += categories[i].SumHess
		leftCount += categories[i].Count

		rightCount := total - leftCount
		if leftCount < minData || rightCount < minData {
			continue
		}
		gain := t.splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess)
		if gain > best.Gain {
			best.Gain = gain
			best.LeftCount = leftCount
			best.RightCount = rightCount
			bestPrefix = i + 1
		}
	}
	if bestPrefix == 0 {
		return best
	}

	left := make([]int, bestPrefix)
	for i := 0; i < bestPrefix; i++ {
		left[i] = categories[i].Category
	}
	slices.Sort(left)

	best.Categorical = true
	best.Categories = left
	best.DefaultLeft = false
	return best
}
