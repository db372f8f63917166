package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepDataset は x0 <= 5 で 0、それ以外で 10 になる階段関数
func stepDataset() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		X = append(X, []float64{float64(i) / 2, float64(i % 3)})
		if float64(i)/2 <= 5 {
			y = append(y, 0)
		} else {
			y = append(y, 10)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor(t *testing.T) {
	X, y := stepDataset()

	t.Run("階段関数を正確に学習する", func(t *testing.T) {
		tree := NewDecisionTreeRegressor(0, 1)
		require.NoError(t, tree.Fit(X, y))

		pred, err := tree.Predict([][]float64{{1, 0}, {9, 0}})
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 10}, pred)
		assert.Equal(t, 1, tree.Depth())
	})

	t.Run("目的変数が定数なら葉のみ", func(t *testing.T) {
		tree := NewDecisionTreeRegressor(0, 1)
		require.NoError(t, tree.Fit([][]float64{{1}, {2}, {3}}, []float64{4, 4, 4}))
		assert.Equal(t, 0, tree.Depth())
	})

	t.Run("最大深さを守る", func(t *testing.T) {
		var X [][]float64
		var y []float64
		for i := 0; i < 64; i++ {
			X = append(X, []float64{float64(i)})
			y = append(y, float64(i*i))
		}
		tree := NewDecisionTreeRegressor(3, 1)
		require.NoError(t, tree.Fit(X, y))
		assert.LessOrEqual(t, tree.Depth(), 3)
	})

	t.Run("未学習では予測できない", func(t *testing.T) {
		_, err := NewDecisionTreeRegressor(0, 1).Predict([][]float64{{1}})
		assert.ErrorIs(t, err, ErrNotFitted)
	})
}

func TestRandomForestRegressor(t *testing.T) {
	X, y := stepDataset()

	forest := NewRandomForestRegressor(20, 5, 42)
	require.NoError(t, forest.Fit(X, y))

	pred, err := forest.Predict([][]float64{{0.5, 1}, {9.5, 1}})
	require.NoError(t, err)
	assert.Less(t, pred[0], 5.0)
	assert.Greater(t, pred[1], 5.0)

	t.Run("同じシードなら同じ予測", func(t *testing.T) {
		again := NewRandomForestRegressor(20, 5, 42)
		require.NoError(t, again.Fit(X, y))
		pred2, err := again.Predict([][]float64{{0.5, 1}, {9.5, 1}})
		require.NoError(t, err)
		assert.Equal(t, pred, pred2)
	})

	t.Run("特徴量数が異なる入力はエラー", func(t *testing.T) {
		_, err := forest.Predict([][]float64{{1}})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
