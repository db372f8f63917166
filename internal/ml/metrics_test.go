package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	t.Run("手計算の値と一致する", func(t *testing.T) {
		truth := []float64{3, -0.5, 2, 7}
		predictions := []float64{2.5, 0.0, 2, 8}

		m, err := Evaluate(predictions, truth)
		require.NoError(t, err)

		assert.InDelta(t, 0.5, m.MAE, 1e-12)
		assert.InDelta(t, 0.375, m.MSE, 1e-12)
		assert.InDelta(t, math.Sqrt(0.375), m.RMSE, 1e-12)
		assert.InDelta(t, 0.9486081370449679, m.R2, 1e-12)
	})

	t.Run("完全一致ならR²は1", func(t *testing.T) {
		y := []float64{1, 2, 3}
		m, err := Evaluate(y, y)
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.MAE)
		assert.Equal(t, 1.0, m.R2)
	})

	t.Run("正解値が定数の場合", func(t *testing.T) {
		truth := []float64{2, 2, 2}
		m, err := Evaluate([]float64{1, 2, 3}, truth)
		require.NoError(t, err)
		assert.Equal(t, 0.0, m.R2)
		assert.False(t, math.IsNaN(m.R2))
	})

	t.Run("長さが異なる場合はエラー", func(t *testing.T) {
		_, err := Evaluate([]float64{1}, []float64{1, 2})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("空の場合はエラー", func(t *testing.T) {
		_, err := Evaluate(nil, nil)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestNegMeanAbsoluteError(t *testing.T) {
	assert.InDelta(t, -1.0, NegMeanAbsoluteError([]float64{0, 0}, []float64{1, -1}), 1e-12)
}
