package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// Scorer は予測値を評価するスコア関数（大きいほど良い）
type Scorer func(truth, predictions []float64) float64

// NegMeanAbsoluteError はMAEの符号を反転したスコア
func NegMeanAbsoluteError(truth, predictions []float64) float64 {
	return -MeanAbsoluteError(truth, predictions)
}

// MeanAbsoluteError 平均絶対誤差
func MeanAbsoluteError(truth, predictions []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	diff := make([]float64, len(truth))
	for i := range truth {
		diff[i] = math.Abs(truth[i] - predictions[i])
	}
	return floats.Sum(diff) / float64(len(diff))
}

// MeanSquaredError 平均二乗誤差
func MeanSquaredError(truth, predictions []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	var sum float64
	for i := range truth {
		d := truth[i] - predictions[i]
		sum += d * d
	}
	return sum / float64(len(truth))
}

// R2Score 決定係数
// 正解値が定数の場合、完全一致なら1、それ以外は0を返す
func R2Score(truth, predictions []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	if stat.PopVariance(truth, nil) == 0 {
		if MeanSquaredError(truth, predictions) == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predictions, truth, nil)
}

// Evaluate MAE・MSE・RMSE・R²をまとめて計算する
func Evaluate(predictions, truth []float64) (model.EvaluationMetrics, error) {
	if len(predictions) != len(truth) {
		return model.EvaluationMetrics{}, fmt.Errorf("%w: %d predictions, %d targets", ErrShapeMismatch, len(predictions), len(truth))
	}
	if len(truth) == 0 {
		return model.EvaluationMetrics{}, ErrEmptyDataset
	}
	mse := MeanSquaredError(truth, predictions)
	return model.EvaluationMetrics{
		MAE:  MeanAbsoluteError(truth, predictions),
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   R2Score(truth, predictions),
	}, nil
}
