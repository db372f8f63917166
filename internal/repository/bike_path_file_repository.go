package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	"github.com/KamilS31/LI-Project/internal/domain/helper"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// BikePathFileRepository 事前抽出済みの自転車道ファイル（GeoParquet / GeoJSON）の読み込み
type BikePathFileRepository struct {
	dir string
}

// NewBikePathFileRepository 相対パスはdirからの相対として解決する
func NewBikePathFileRepository(dir string) repository.BikePathRepository {
	return &BikePathFileRepository{dir: dir}
}

// bikePathRow GeoParquetのgeometryカラム（WKB）
type bikePathRow struct {
	Geometry []byte `parquet:"geometry"`
}

// LoadBikePaths ファイルの全ジオメトリを線として返す
// ファイルがない場合はos.ErrNotExistをラップしたエラーを返す
func (r *BikePathFileRepository) LoadBikePaths(ctx context.Context, path string) ([]orb.LineString, error) {
	if !filepath.IsAbs(path) && r.dir != "" {
		path = filepath.Join(r.dir, path)
	}

	var (
		geometries []orb.Geometry
		err        error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".geoparquet":
		geometries, err = readGeoParquet(path)
	case ".geojson", ".json":
		geometries, err = readGeoJSON(path)
	default:
		return nil, fmt.Errorf("未対応の自転車道ファイル形式です: %s", path)
	}
	if err != nil {
		return nil, err
	}

	var lines []orb.LineString
	for _, g := range geometries {
		lines = append(lines, helper.LineStrings(g)...)
	}
	log.Printf("📄 自転車道ファイル読み込み: %s (%dジオメトリ → %d本)", path, len(geometries), len(lines))
	return lines, nil
}

func readGeoParquet(path string) ([]orb.Geometry, error) {
	rows, err := parquet.ReadFile[bikePathRow](path)
	if err != nil {
		return nil, fmt.Errorf("GeoParquetの読み込みに失敗: %w", err)
	}
	geometries := make([]orb.Geometry, 0, len(rows))
	for i, row := range rows {
		if len(row.Geometry) == 0 {
			continue
		}
		g, err := wkb.Unmarshal(row.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%d行目のWKBデコードに失敗: %w", i, err)
		}
		geometries = append(geometries, g)
	}
	return geometries, nil
}

func readGeoJSON(path string) ([]orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("GeoJSONの読み込みに失敗: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("GeoJSONのパースに失敗: %w", err)
	}
	geometries := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			geometries = append(geometries, f.Geometry)
		}
	}
	return geometries, nil
}
