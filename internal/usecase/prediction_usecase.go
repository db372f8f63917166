package usecase

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/ml"
)

// TableWriter 特徴量テーブルを指定パスに書き出す
type TableWriter interface {
	WriteFile(table *model.FeatureTable, path string) error
}

type PredictionUseCase interface {
	// Predict は学習済みモデルを別の都市のテーブルに適用し、予測値カラムを追加したテーブルを返す
	Predict(ctx context.Context, city model.City, table *model.FeatureTable, result *TrainingResult) (*model.FeatureTable, error)
}

// predictionUseCaseImpl はPredictionUseCaseの実装
type predictionUseCaseImpl struct {
	writer    TableWriter
	renderer  MapRenderer
	outputDir string
}

// NewPredictionUseCase は新しいPredictionUseCaseを作成
// rendererがnilの場合は比較図を出力しない
func NewPredictionUseCase(writer TableWriter, renderer MapRenderer, outputDir string) PredictionUseCase {
	return &predictionUseCaseImpl{
		writer:    writer,
		renderer:  renderer,
		outputDir: outputDir,
	}
}

func (u *predictionUseCaseImpl) Predict(ctx context.Context, city model.City, table *model.FeatureTable, result *TrainingResult) (*model.FeatureTable, error) {
	if result == nil || result.Estimator == nil {
		return nil, ml.ErrNotFitted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := table.CheckSchema(result.FeatureColumns); err != nil {
		return nil, err
	}

	X, err := table.Matrix(result.FeatureColumns)
	if err != nil {
		return nil, err
	}
	predictions, err := result.Estimator.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("%sの予測に失敗: %w", city.Name, err)
	}

	predicted := table.Clone()
	predicted.AddColumn(model.ColumnPredictedBikePathLength)
	for i, v := range predictions {
		predicted.Set(i, model.ColumnPredictedBikePathLength, v)
	}

	path := filepath.Join(u.outputDir, city.PredictionFileName())
	if err := u.writer.WriteFile(predicted, path); err != nil {
		return nil, fmt.Errorf("予測結果の保存に失敗: %w", err)
	}
	sum, _ := predicted.Sum(model.ColumnPredictedBikePathLength)
	log.Printf("🔮 %s: %dセルに予測値を付与 (予測総延長 %.1f m) → %s", city.Name, predicted.Len(), sum, path)

	if u.renderer != nil && predicted.HasColumn(model.ColumnBikePathLength) {
		if err := u.renderer.Comparison(predicted, model.ColumnBikePathLength, model.ColumnPredictedBikePathLength); err != nil {
			log.Printf("⚠️  比較図の出力に失敗: %v", err)
		}
	}
	return predicted, nil
}
