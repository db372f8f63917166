package usecase

import (
	"context"
	"fmt"
	"log"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// PipelineConfig 1回のパイプライン実行の設定
type PipelineConfig struct {
	RunName    string
	TrainCity  model.City        // モデルを学習する都市
	TargetCity model.City        // 学習済みモデルを適用する都市
	Params     map[string]string // 実験ランに追加で記録するパラメータ
}

// PipelineResult パイプラインの実行結果
type PipelineResult struct {
	RunID       string
	Tables      []*model.FeatureTable
	Training    *TrainingResult
	Predictions *model.FeatureTable
}

type PipelineUseCase interface {
	// Run は前処理・学習・評価・別都市への適用を順に実行し、実験ランとして記録する
	Run(ctx context.Context, config PipelineConfig) (*PipelineResult, error)
}

// pipelineUseCaseImpl はPipelineUseCaseの実装
type pipelineUseCaseImpl struct {
	preprocess PreprocessUseCase
	training   TrainingUseCase
	prediction PredictionUseCase
	runs       repository.RunRepository
}

// NewPipelineUseCase は新しいPipelineUseCaseを作成
func NewPipelineUseCase(
	preprocess PreprocessUseCase,
	training TrainingUseCase,
	prediction PredictionUseCase,
	runs repository.RunRepository,
) PipelineUseCase {
	return &pipelineUseCaseImpl{
		preprocess: preprocess,
		training:   training,
		prediction: prediction,
		runs:       runs,
	}
}

func (u *pipelineUseCaseImpl) Run(ctx context.Context, config PipelineConfig) (result *PipelineResult, err error) {
	start := time.Now()
	run, err := u.runs.StartRun(ctx, config.RunName)
	if err != nil {
		return nil, fmt.Errorf("実験ランの開始に失敗: %w", err)
	}
	log.Printf("🚀 パイプライン開始 (run: %s)", run.ID)

	defer func() {
		status := model.RunStatusFinished
		if err != nil {
			status = model.RunStatusFailed
		}
		// キャンセル後でもランの終了は記録する
		if endErr := u.runs.EndRun(context.WithoutCancel(ctx), run.ID, status); endErr != nil {
			log.Printf("⚠️  実験ランの終了記録に失敗: %v", endErr)
		}
	}()

	params := map[string]string{
		"train_city":  config.TrainCity.Name,
		"target_city": config.TargetCity.Name,
	}
	maps.Copy(params, config.Params)
	if err := u.runs.LogParams(ctx, run.ID, params); err != nil {
		return nil, fmt.Errorf("パラメータの記録に失敗: %w", err)
	}

	tables, err := u.preprocess.Run(ctx, []model.City{config.TrainCity, config.TargetCity})
	if err != nil {
		return nil, err
	}
	trainTable, targetTable := tables[0], tables[1]
	if err := u.runs.LogMetrics(ctx, run.ID, tableMetrics(tables)); err != nil {
		return nil, fmt.Errorf("データ統計の記録に失敗: %w", err)
	}

	log.Printf("5) %sのデータでモデルを学習", config.TrainCity.Name)
	trained, err := u.training.Train(ctx, trainTable)
	if err != nil {
		return nil, fmt.Errorf("モデルの学習に失敗: %w", err)
	}
	if err := u.runs.LogParams(ctx, run.ID, trainingParams(trained)); err != nil {
		return nil, fmt.Errorf("学習パラメータの記録に失敗: %w", err)
	}
	metrics := trained.Metrics.AsMap()
	metrics["cv_best_score"] = trained.BestScore
	if err := u.runs.LogMetrics(ctx, run.ID, metrics); err != nil {
		return nil, fmt.Errorf("評価指標の記録に失敗: %w", err)
	}

	log.Printf("6) %sにモデルを適用", config.TargetCity.Name)
	predicted, err := u.prediction.Predict(ctx, config.TargetCity, targetTable, trained)
	if err != nil {
		return nil, fmt.Errorf("モデルの適用に失敗: %w", err)
	}
	predictedSum, _ := predicted.Sum(model.ColumnPredictedBikePathLength)
	if err := u.runs.LogMetrics(ctx, run.ID, map[string]float64{
		metricKey(predicted.City, "predicted_bike_path_sum"): predictedSum,
	}); err != nil {
		return nil, fmt.Errorf("予測結果の記録に失敗: %w", err)
	}

	log.Printf("✅ パイプライン完了 (run: %s, %v)", run.ID, time.Since(start).Round(time.Second))
	return &PipelineResult{
		RunID:       run.ID,
		Tables:      tables,
		Training:    trained,
		Predictions: predicted,
	}, nil
}

// tableMetrics 都市ごとのセル数と自転車道の総延長
func tableMetrics(tables []*model.FeatureTable) map[string]float64 {
	metrics := make(map[string]float64, 2*len(tables))
	for _, t := range tables {
		metrics[metricKey(t.City, "cells")] = float64(t.UniqueIndexCount())
		if sum, err := t.Sum(model.ColumnBikePathLength); err == nil {
			metrics[metricKey(t.City, "bike_path_sum")] = sum
		}
	}
	return metrics
}

func trainingParams(result *TrainingResult) map[string]string {
	params := map[string]string{
		"feature_columns": strings.Join(result.FeatureColumns, ","),
		"train_rows":      strconv.Itoa(result.TrainRows),
		"test_rows":       strconv.Itoa(result.TestRows),
	}
	for k, v := range result.BestParams {
		params["best_"+k] = strconv.Itoa(v)
	}
	return params
}

func metricKey(city, name string) string {
	return strings.ToLower(city) + "_" + name
}
