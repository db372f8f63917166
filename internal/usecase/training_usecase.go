package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/ml"
)

// TrainingConfig 学習・評価の設定
type TrainingConfig struct {
	TestSize   float64
	Seed       uint64
	Folds      int
	ParamGrid  ml.ParamGrid
	MaxWorkers int
}

// DefaultTrainingConfig 評価用20%・乱数シード42・5分割交差検証
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		TestSize:   0.2,
		Seed:       42,
		Folds:      5,
		ParamGrid:  ml.DefaultParamGrid(),
		MaxWorkers: 1,
	}
}

// TrainingResult 学習済みモデルと評価結果
type TrainingResult struct {
	FeatureColumns []string
	Estimator      ml.Regressor
	BestParams     ml.Params
	BestScore      float64
	CVResults      []ml.CVResult
	Metrics        model.EvaluationMetrics
	TrainRows      int
	TestRows       int
}

type TrainingUseCase interface {
	// Train は自転車道の延長を目的変数、それ以外の特徴量を説明変数としてモデルを学習・評価する
	Train(ctx context.Context, table *model.FeatureTable) (*TrainingResult, error)
}

// trainingUseCaseImpl はTrainingUseCaseの実装
type trainingUseCaseImpl struct {
	config TrainingConfig
}

// NewTrainingUseCase は新しいTrainingUseCaseを作成
func NewTrainingUseCase(config TrainingConfig) TrainingUseCase {
	return &trainingUseCaseImpl{config: config}
}

func (u *trainingUseCaseImpl) Train(ctx context.Context, table *model.FeatureTable) (*TrainingResult, error) {
	columns := table.FeatureColumns(model.ColumnBikePathLength, model.ColumnPredictedBikePathLength)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %sに説明変数がありません", model.ErrSchemaMismatch, table.City)
	}
	X, err := table.Matrix(columns)
	if err != nil {
		return nil, err
	}
	y, err := table.Column(model.ColumnBikePathLength)
	if err != nil {
		return nil, err
	}

	train, test, err := ml.TrainTestSplit(X, y, u.config.TestSize, u.config.Seed)
	if err != nil {
		return nil, fmt.Errorf("学習データの分割に失敗: %w", err)
	}
	log.Printf("🧮 %s: 学習 %d行 / 評価 %d行, 説明変数 %v", table.City, len(train.Y), len(test.Y), columns)

	search := ml.NewGridSearchCV(ml.RandomForestFactory(u.config.Seed), u.config.ParamGrid)
	if u.config.Folds > 0 {
		search.Folds = u.config.Folds
	}
	search.MaxWorkers = u.config.MaxWorkers
	if err := search.Fit(ctx, train.X, train.Y); err != nil {
		return nil, fmt.Errorf("グリッドサーチに失敗: %w", err)
	}

	predictions, err := search.Predict(test.X)
	if err != nil {
		return nil, fmt.Errorf("評価データの予測に失敗: %w", err)
	}
	metrics, err := ml.Evaluate(predictions, test.Y)
	if err != nil {
		return nil, fmt.Errorf("モデルの評価に失敗: %w", err)
	}
	log.Printf("📊 MAE: %.4f, MSE: %.4f, RMSE: %.4f, R2: %.4f", metrics.MAE, metrics.MSE, metrics.RMSE, metrics.R2)

	return &TrainingResult{
		FeatureColumns: columns,
		Estimator:      search.BestEstimator,
		BestParams:     search.BestParams,
		BestScore:      search.BestScore,
		CVResults:      search.CVResults,
		Metrics:        metrics,
		TrainRows:      len(train.Y),
		TestRows:       len(test.Y),
	}, nil
}
