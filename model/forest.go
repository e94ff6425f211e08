package model

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ForestParams are the random-forest hyperparameters.
type ForestParams struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
}

// DefaultForestParams mirrors the hyperparameters the model ships with.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:    100,
		MaxDepth:       10,
		MinSamplesLeaf: 2,
		Seed:           42,
	}
}

// TreeNode is one node of a CART regression tree. Interior nodes route on
// Feature < Threshold; leaves carry the mean target of their sample subset.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Value     float64
	Left      *TreeNode
	Right     *TreeNode
}

// Forest is an ensemble of variance-reduction regression trees fitted on
// bootstrap samples. Fitting with the same seed and data is deterministic.
type Forest struct {
	Params     ForestParams
	NFeatures  int
	Trees      []*TreeNode
	Importance []float64
}

// Fit grows the ensemble over X and y.
func (f *Forest) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return &ShapeMismatchError{Rows: rows, Targets: len(y), Cols: cols, WantCols: cols}
	}
	if rows == 0 {
		return fmt.Errorf("cannot fit forest on empty matrix")
	}

	f.NFeatures = cols
	f.Trees = make([]*TreeNode, 0, f.Params.NEstimators)
	f.Importance = make([]float64, cols)

	samples := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = mat.Row(nil, i, X)
	}

	rng := rand.New(rand.NewSource(f.Params.Seed))
	grower := &treeGrower{
		x:          samples,
		y:          y,
		maxDepth:   f.Params.MaxDepth,
		minLeaf:    f.Params.MinSamplesLeaf,
		importance: f.Importance,
	}

	for t := 0; t < f.Params.NEstimators; t++ {
		boot := make([]int, rows)
		for i := range boot {
			boot[i] = rng.Intn(rows)
		}
		f.Trees = append(f.Trees, grower.grow(boot, 0))
	}
	return nil
}

// Fitted reports whether the ensemble has been grown.
func (f *Forest) Fitted() bool { return len(f.Trees) > 0 }

// Predict returns the ensemble mean for one feature vector.
func (f *Forest) Predict(x []float64) float64 {
	preds := f.PredictAll(x)
	return floats.Sum(preds) / float64(len(preds))
}

// PredictAll returns every tree's prediction for one feature vector. The
// spread of the returned values is the basis of the confidence estimate.
func (f *Forest) PredictAll(x []float64) []float64 {
	preds := make([]float64, len(f.Trees))
	for i, root := range f.Trees {
		node := root
		for !node.Leaf {
			if x[node.Feature] < node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		preds[i] = node.Value
	}
	return preds
}

// FeatureImportances returns per-feature impurity-decrease weights,
// non-negative and normalized to sum 1. A forest of pure leaves (no splits)
// falls back to uniform weights.
func (f *Forest) FeatureImportances() []float64 {
	out := make([]float64, f.NFeatures)
	total := floats.Sum(f.Importance)
	if total <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(f.NFeatures)
		}
		return out
	}
	for i, v := range f.Importance {
		out[i] = v / total
	}
	return out
}

// treeGrower builds CART trees over index subsets of a shared sample pool,
// accumulating impurity decrease per feature.
type treeGrower struct {
	x          [][]float64
	y          []float64
	maxDepth   int
	minLeaf    int
	importance []float64
}

func (g *treeGrower) grow(idx []int, depth int) *TreeNode {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	if depth >= g.maxDepth || len(idx) < 2*g.minLeaf || sse <= 1e-12 {
		return &TreeNode{Leaf: true, Value: mean}
	}

	feature, threshold, gain, ok := g.bestSplit(idx, sse)
	if !ok {
		return &TreeNode{Leaf: true, Value: mean}
	}
	g.importance[feature] += gain

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      g.grow(left, depth+1),
		Right:     g.grow(right, depth+1),
	}
}

func (g *treeGrower) bestSplit(idx []int, parentSSE float64) (feature int, threshold, gain float64, ok bool) {
	nFeatures := len(g.x[idx[0]])
	sorted := make([]int, len(idx))

	for j := 0; j < nFeatures; j++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return g.x[sorted[a]][j] < g.x[sorted[b]][j]
		})

		leftSum, leftSq := 0.0, 0.0
		totalSum, totalSq := 0.0, 0.0
		for _, i := range sorted {
			totalSum += g.y[i]
			totalSq += g.y[i] * g.y[i]
		}

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftSum += g.y[i]
			leftSq += g.y[i] * g.y[i]

			// No split point between identical values.
			if g.x[i][j] == g.x[sorted[k+1]][j] {
				continue
			}

			nl, nr := float64(k+1), float64(len(sorted)-k-1)
			if int(nl) < g.minLeaf || int(nr) < g.minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sseLeft := leftSq - leftSum*leftSum/nl
			sseRight := rightSq - rightSum*rightSum/nr

			if improve := parentSSE - sseLeft - sseRight; improve > gain+1e-12 {
				gain = improve
				feature = j
				threshold = (g.x[i][j] + g.x[sorted[k+1]][j]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, gain, ok
}
