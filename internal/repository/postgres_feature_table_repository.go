package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
	"github.com/KamilS31/LI-Project/internal/infrastructure/database"
)

// PostgresFeatureTableRepository PostGISのhex_featuresテーブルへのエクスポート
type PostgresFeatureTableRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresFeatureTableRepository(client *database.PostgreSQLClient) repository.FeatureTableRepository {
	return &PostgresFeatureTableRepository{
		client: client,
	}
}

const createHexFeaturesTable = `
CREATE TABLE IF NOT EXISTS hex_features (
	city      TEXT NOT NULL,
	h3_index  TEXT NOT NULL,
	geometry  geometry(Polygon, 4326) NOT NULL,
	features  JSONB NOT NULL,
	PRIMARY KEY (city, h3_index)
)`

// EnsureSchema hex_featuresテーブルがなければ作成する
func (r *PostgresFeatureTableRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.DB.ExecContext(ctx, createHexFeaturesTable); err != nil {
		return fmt.Errorf("hex_featuresテーブルの作成に失敗: %w", err)
	}
	return nil
}

// Save 都市の既存行を削除してから全セルを書き込む
func (r *PostgresFeatureTableRepository) Save(ctx context.Context, table *model.FeatureTable) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := r.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hex_features WHERE city = $1`, table.City); err != nil {
		return fmt.Errorf("既存データの削除に失敗: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hex_features (city, h3_index, geometry, features)
		VALUES ($1, $2, ST_GeomFromText($3, 4326), $4::jsonb)`)
	if err != nil {
		return fmt.Errorf("INSERT文の準備に失敗: %w", err)
	}
	defer stmt.Close()

	for i, row := range TableToRows(table) {
		features, err := json.Marshal(row.Features)
		if err != nil {
			return fmt.Errorf("特徴量のJSONマーシャル失敗: %w", err)
		}
		geometry := wkt.MarshalString(table.Cells[i].Geometry)
		if _, err := stmt.ExecContext(ctx, row.City, row.H3Index, geometry, string(features)); err != nil {
			return fmt.Errorf("セル %s の書き込みに失敗: %w", row.H3Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	log.Printf("🐘 PostGIS: %s %dセルを書き込み", table.City, table.Len())
	return nil
}

// Load 都市の全セルを読み込む
func (r *PostgresFeatureTableRepository) Load(ctx context.Context, city string) (*model.FeatureTable, error) {
	query := `SELECT h3_index, ST_AsGeoJSON(geometry)::jsonb, features FROM hex_features WHERE city = $1 ORDER BY h3_index`

	rows, err := r.client.DB.QueryContext(ctx, query, city)
	if err != nil {
		return nil, fmt.Errorf("hex_featuresの取得失敗: %w", err)
	}
	defer rows.Close()

	var result []HexFeatureRow
	for rows.Next() {
		var (
			index    string
			geometry string
			features string
		)
		if err := rows.Scan(&index, &geometry, &features); err != nil {
			return nil, fmt.Errorf("hex_featuresスキャンエラー: %w", err)
		}
		row, err := scanHexFeatureRow(city, index, geometry, features)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hex_featuresの読み込みエラー: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: hex_features (%s)", model.ErrCheckpointNotFound, city)
	}
	return RowsToTable(city, result)
}

// Exists 都市の行が1件以上あるか
func (r *PostgresFeatureTableRepository) Exists(ctx context.Context, city string) (bool, error) {
	var exists bool
	err := r.client.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM hex_features WHERE city = $1)`, city).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("hex_featuresの確認に失敗: %w", err)
	}
	return exists, nil
}

// scanHexFeatureRow JSONBカラムをHexFeatureRowに変換
func scanHexFeatureRow(city, index, geometry, features string) (HexFeatureRow, error) {
	row := HexFeatureRow{City: city, H3Index: index}
	if err := json.Unmarshal([]byte(geometry), &row.Geometry); err != nil {
		return row, fmt.Errorf("geometry JSONBパースエラー: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &row.Features); err != nil {
		return row, fmt.Errorf("features JSONBパースエラー: %w", err)
	}
	return row, nil
}
