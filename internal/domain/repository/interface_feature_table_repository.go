package repository

import (
	"context"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// FeatureTableRepository 都市ごとの特徴量テーブルを保存・読み込みするリポジトリ
type FeatureTableRepository interface {
	Save(ctx context.Context, table *model.FeatureTable) error
	Load(ctx context.Context, city string) (*model.FeatureTable, error)
	Exists(ctx context.Context, city string) (bool, error)
}
