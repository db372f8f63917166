package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Dataset 説明変数と目的変数の組
type Dataset struct {
	X [][]float64
	Y []float64
}

// TrainTestSplit 行をシャッフルして学習用と評価用に分割する
// 評価用の行数は ceil(n * testSize)
func TrainTestSplit(X [][]float64, y []float64, testSize float64, seed uint64) (train, test Dataset, err error) {
	if _, err := checkXY(X, y); err != nil {
		return Dataset{}, Dataset{}, err
	}
	if testSize <= 0 || testSize >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("testSize must be in (0, 1), got %f", testSize)
	}

	n := len(y)
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		return Dataset{}, Dataset{}, fmt.Errorf("%w: %d rows is too few to hold out %d", ErrEmptyDataset, n, nTest)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	test = subset(X, y, perm[:nTest])
	train = subset(X, y, perm[nTest:])
	return train, test, nil
}

func subset(X [][]float64, y []float64, indices []int) Dataset {
	ds := Dataset{
		X: make([][]float64, len(indices)),
		Y: make([]float64, len(indices)),
	}
	for i, idx := range indices {
		ds.X[i] = X[idx]
		ds.Y[i] = y[idx]
	}
	return ds
}

// Fold 1分割分の学習用・検証用の行インデックス
type Fold struct {
	Train []int
	Test  []int
}

// KFold シャッフルせずに連続したk個の分割を作る
// 先頭から n % k 個の分割は1行多くなる
func KFold(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("%w: cannot split %d rows into %d folds", ErrEmptyDataset, n, k)
	}

	folds := make([]Fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size

		var fold Fold
		for j := 0; j < n; j++ {
			if j >= start && j < end {
				fold.Test = append(fold.Test, j)
			} else {
				fold.Train = append(fold.Train, j)
			}
		}
		folds = append(folds, fold)
		start = end
	}
	return folds, nil
}
