package ml

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// RandomForestRegressor ブートストラップ標本で学習した回帰木のアンサンブル
// 予測は各木の予測値の平均
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int // 0は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0は全特徴量
	Seed            uint64

	trees     []*DecisionTreeRegressor
	nFeatures int
}

// NewRandomForestRegressor 新しいランダムフォレストを作成
func NewRandomForestRegressor(nEstimators, maxDepth int, seed uint64) *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     nEstimators,
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            seed,
	}
}

// Fit 各木をブートストラップ標本で学習する
func (f *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	nFeatures, err := checkXY(X, y)
	if err != nil {
		return err
	}
	f.nFeatures = nFeatures

	nEstimators := f.NEstimators
	if nEstimators <= 0 {
		nEstimators = 100
	}

	rng := rand.New(rand.NewPCG(f.Seed, f.Seed+1))
	n := len(y)
	f.trees = make([]*DecisionTreeRegressor, 0, nEstimators)
	for i := 0; i < nEstimators; i++ {
		sampleX := make([][]float64, n)
		sampleY := make([]float64, n)
		for j := 0; j < n; j++ {
			k := rng.IntN(n)
			sampleX[j] = X[k]
			sampleY[j] = y[k]
		}

		tree := NewDecisionTreeRegressor(f.MaxDepth, rng.Uint64())
		tree.MinSamplesSplit = f.MinSamplesSplit
		tree.MinSamplesLeaf = f.MinSamplesLeaf
		tree.MaxFeatures = f.MaxFeatures
		if err := tree.Fit(sampleX, sampleY); err != nil {
			return err
		}
		f.trees = append(f.trees, tree)
	}
	return nil
}

// Predict 全ての木の予測値の平均を返す
func (f *RandomForestRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkX(X, f.nFeatures); err != nil {
		return nil, err
	}

	perTree := make([][]float64, len(f.trees))
	for i, t := range f.trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		perTree[i] = p
	}

	out := make([]float64, len(X))
	votes := make([]float64, len(f.trees))
	for row := range X {
		for i := range f.trees {
			votes[i] = perTree[i][row]
		}
		out[row] = stat.Mean(votes, nil)
	}
	return out, nil
}
