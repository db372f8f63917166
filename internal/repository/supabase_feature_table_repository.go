package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
	"github.com/KamilS31/LI-Project/internal/infrastructure/database"
)

// supabaseBatchSize 1リクエストでupsertする行数
const supabaseBatchSize = 500

type SupabaseFeatureTableRepository struct {
	client *database.SupabaseClient
}

func NewSupabaseFeatureTableRepository(client *database.SupabaseClient) repository.FeatureTableRepository {
	return &SupabaseFeatureTableRepository{
		client: client,
	}
}

func (r *SupabaseFeatureTableRepository) Save(ctx context.Context, table *model.FeatureTable) error {
	// 切り取り直したグリッドで古いセルが残らないよう都市の既存行を先に削除する
	_, _, err := r.client.GetClient().From("hex_features").Delete("minimal", "").Eq("city", table.City).Execute()
	if err != nil {
		return fmt.Errorf("既存の特徴量データの削除失敗: %w", err)
	}

	rows := TableToRows(table)
	for start := 0; start < len(rows); start += supabaseBatchSize {
		end := min(start+supabaseBatchSize, len(rows))

		_, _, err = r.client.GetClient().From("hex_features").Upsert(rows[start:end], "city,h3_index", "minimal", "").Execute()
		if err != nil {
			return fmt.Errorf("特徴量データのupsert失敗: %w", err)
		}
	}
	log.Printf("⚡ Supabase: %s %dセルをupsert", table.City, len(rows))
	return nil
}

func (r *SupabaseFeatureTableRepository) Load(ctx context.Context, city string) (*model.FeatureTable, error) {
	var rows []HexFeatureRow
	data, _, err := r.client.GetClient().From("hex_features").Select("*", "exact", false).Eq("city", city).Execute()
	if err != nil {
		return nil, fmt.Errorf("特徴量データの取得失敗: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, fmt.Errorf("特徴量データのJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: hex_features (%s)", model.ErrCheckpointNotFound, city)
	}
	return RowsToTable(city, rows)
}

func (r *SupabaseFeatureTableRepository) Exists(ctx context.Context, city string) (bool, error) {
	_, count, err := r.client.GetClient().From("hex_features").Select("h3_index", "exact", true).Eq("city", city).Execute()
	if err != nil {
		return false, fmt.Errorf("特徴量データの確認失敗: %w", err)
	}
	return count > 0, nil
}
