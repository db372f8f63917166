package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// CSVFeatureTableRepository チェックポイントCSV（<dir>/<City>_data.csv）による特徴量テーブルの保存
type CSVFeatureTableRepository struct {
	dir string
}

// NewCSVFeatureTableRepository 新しいCSVFeatureTableRepositoryを作成
func NewCSVFeatureTableRepository(dir string) *CSVFeatureTableRepository {
	return &CSVFeatureTableRepository{dir: dir}
}

var _ repository.FeatureTableRepository = (*CSVFeatureTableRepository)(nil)

// Path 都市のチェックポイントファイルのパス
func (r *CSVFeatureTableRepository) Path(city string) string {
	return filepath.Join(r.dir, model.City{Name: city}.CheckpointFileName())
}

// Save チェックポイントを書き出す
func (r *CSVFeatureTableRepository) Save(ctx context.Context, table *model.FeatureTable) error {
	path := r.Path(table.City)
	if err := r.WriteFile(table, path); err != nil {
		return err
	}
	log.Printf("💾 チェックポイント保存: %s (%dセル, %dカラム)", path, table.Len(), len(table.Columns))
	return nil
}

// Exists チェックポイントが存在するか
func (r *CSVFeatureTableRepository) Exists(ctx context.Context, city string) (bool, error) {
	_, err := os.Stat(r.Path(city))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("チェックポイントの確認に失敗: %w", err)
}

// Load チェックポイントを読み込み、1行1インデックスとジオメトリを検証する
func (r *CSVFeatureTableRepository) Load(ctx context.Context, city string) (*model.FeatureTable, error) {
	path := r.Path(city)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrCheckpointNotFound, path)
		}
		return nil, fmt.Errorf("チェックポイントのオープンに失敗: %w", err)
	}
	defer f.Close()

	table, err := ReadFeatureTable(city, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("📂 チェックポイント読み込み: %s (%dセル)", path, table.Len())
	return table, nil
}

// WriteFile 任意のパスにテーブルを書き出す（一時ファイル経由で置き換える）
func (r *CSVFeatureTableRepository) WriteFile(table *model.FeatureTable, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteFeatureTable(tmp, table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("チェックポイントの書き込みに失敗: %w", err)
	}
	return nil
}

// checkpointHeader h3_index, bike_path_length, geometry, その他の順のヘッダー
func checkpointHeader(table *model.FeatureTable) []string {
	header := []string{model.ColumnH3Index}
	if table.HasColumn(model.ColumnBikePathLength) {
		header = append(header, model.ColumnBikePathLength)
	}
	header = append(header, model.ColumnGeometry)
	return append(header, table.FeatureColumns(model.ColumnBikePathLength)...)
}

// WriteFeatureTable テーブルをCSVとして書き出す（ジオメトリはWKT）
func WriteFeatureTable(w io.Writer, table *model.FeatureTable) error {
	cw := csv.NewWriter(w)
	header := checkpointHeader(table)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗: %w", err)
	}

	record := make([]string, len(header))
	for _, c := range table.Cells {
		for i, col := range header {
			switch col {
			case model.ColumnH3Index:
				record[i] = c.H3Index
			case model.ColumnGeometry:
				record[i] = wkt.MarshalString(c.Geometry)
			default:
				record[i] = strconv.FormatFloat(c.Features[col], 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("行の書き込みに失敗 (%s): %w", c.H3Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFeatureTable CSVからテーブルを読み込む
func ReadFeatureTable(city string, r io.Reader) (*model.FeatureTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ヘッダーの読み込みに失敗: %w", err)
	}

	indexCol, geometryCol := -1, -1
	table := model.NewFeatureTable(city)
	for i, col := range header {
		switch col {
		case model.ColumnH3Index:
			indexCol = i
		case model.ColumnGeometry:
			geometryCol = i
		default:
			table.Columns = append(table.Columns, col)
		}
	}
	if indexCol < 0 || geometryCol < 0 {
		return nil, fmt.Errorf("%w: h3_index / geometry カラムがありません", model.ErrSchemaMismatch)
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%d行目の読み込みに失敗: %w", line, err)
		}

		polygon, err := wkt.UnmarshalPolygon(record[geometryCol])
		if err != nil {
			return nil, fmt.Errorf("%w: %d行目: %v", model.ErrInvalidGeometry, line, err)
		}
		cell := model.NewHexCell(record[indexCol], polygon)
		for i, col := range header {
			if i == indexCol || i == geometryCol {
				continue
			}
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%d行目の %s が数値ではありません: %w", line, col, err)
			}
			cell.Features[col] = v
		}
		table.Cells = append(table.Cells, cell)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
