package repository

import (
	"context"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// RunRepository 学習パイプラインの実験ランを記録するリポジトリ
type RunRepository interface {
	StartRun(ctx context.Context, name string) (*model.ExperimentRun, error)
	LogParams(ctx context.Context, runID string, params map[string]string) error
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error
	EndRun(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.ExperimentRun, error)
}
