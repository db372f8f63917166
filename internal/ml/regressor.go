package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFitted 学習前のモデルで予測しようとした
	ErrNotFitted = errors.New("model is not fitted")
	// ErrEmptyDataset 学習データが空
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrShapeMismatch 行列の形状が一致しない
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Regressor 回帰モデルの共通インターフェース
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// checkXY は説明変数と目的変数の形状を検証し、特徴量数を返す
func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: X has %d rows, y has %d", ErrShapeMismatch, len(X), len(y))
	}
	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), nFeatures)
		}
	}
	return nFeatures, nil
}

func checkX(X [][]float64, nFeatures int) error {
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), nFeatures)
		}
	}
	return nil
}
