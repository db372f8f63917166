package ml

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DecisionTreeRegressor 分散（二乗誤差）を最小化するCART回帰木
type DecisionTreeRegressor struct {
	MaxDepth        int // 0は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 分割ごとに試す特徴量数（0は全特徴量）

	rng       *rand.Rand
	root      *treeNode
	nFeatures int
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// NewDecisionTreeRegressor 新しい回帰木を作成
func NewDecisionTreeRegressor(maxDepth int, seed uint64) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Fit 回帰木を学習する
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	nFeatures, err := checkXY(X, y)
	if err != nil {
		return err
	}
	t.nFeatures = nFeatures
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(0, 0x9e3779b97f4a7c15))
	}
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}
	t.root = t.build(X, y, indices, 0)
	return nil
}

// Predict 各行の予測値を返す
func (t *DecisionTreeRegressor) Predict(X [][]float64) ([]float64, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	if err := checkX(X, t.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = t.predictRow(row)
	}
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Depth 学習済みの木の深さ（葉のみの場合は0）
func (t *DecisionTreeRegressor) Depth() int {
	return depth(t.root)
}

func depth(n *treeNode) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

func (t *DecisionTreeRegressor) build(X [][]float64, y []float64, indices []int, d int) *treeNode {
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = y[idx]
	}
	node := &treeNode{leaf: true, value: stat.Mean(values, nil)}

	minSplit := max(t.MinSamplesSplit, 2)
	if len(indices) < minSplit || (t.MaxDepth > 0 && d >= t.MaxDepth) {
		return node
	}
	if floats.Max(values) == floats.Min(values) {
		return node
	}

	split, ok := t.bestSplit(X, y, indices)
	if !ok {
		return node
	}

	var left, right []int
	for _, idx := range indices {
		if X[idx][split.feature] <= split.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return node
	}

	node.leaf = false
	node.feature = split.feature
	node.threshold = split.threshold
	node.left = t.build(X, y, left, d+1)
	node.right = t.build(X, y, right, d+1)
	return node
}

type split struct {
	feature   int
	threshold float64
	sse       float64
}

// bestSplit は左右の二乗誤差和が最小になる分割を探す
func (t *DecisionTreeRegressor) bestSplit(X [][]float64, y []float64, indices []int) (split, bool) {
	n := len(indices)
	minLeaf := max(t.MinSamplesLeaf, 1)

	best := split{sse: -1}
	found := false

	keys := make([]float64, n)
	order := make([]int, n)
	for _, f := range t.candidateFeatures() {
		for i, idx := range indices {
			keys[i] = X[idx][f]
		}
		floats.ArgsortStable(keys, order)

		var totalSum, totalSq float64
		for _, o := range order {
			v := y[indices[o]]
			totalSum += v
			totalSq += v * v
		}

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			v := y[indices[order[i]]]
			leftSum += v
			leftSq += v * v

			nl := float64(i + 1)
			nr := float64(n - i - 1)
			if i+1 < minLeaf || n-i-1 < minLeaf {
				continue
			}
			if keys[i] == keys[i+1] {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if !found || sse < best.sse {
				threshold := (keys[i] + keys[i+1]) / 2
				if threshold >= keys[i+1] {
					threshold = keys[i]
				}
				best = split{
					feature:   f,
					threshold: threshold,
					sse:       sse,
				}
				found = true
			}
		}
	}
	return best, found
}

func (t *DecisionTreeRegressor) candidateFeatures() []int {
	if t.MaxFeatures <= 0 || t.MaxFeatures >= t.nFeatures {
		all := make([]int, t.nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return t.rng.Perm(t.nFeatures)[:t.MaxFeatures]
}
