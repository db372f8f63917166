package repository

import (
	"fmt"
	"slices"
	"sort"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// GeoPoint PostGIS POINT 型の JSON 表現
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// GeoPolygon PostGIS POLYGON 型の JSON 表現
type GeoPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// PointToGeoPoint orb.Point を PostGIS POINT 形式に変換
func PointToGeoPoint(point orb.Point) *GeoPoint {
	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}
}

// PolygonToGeoPolygon orb.Polygon を PostGIS POLYGON 形式に変換
func PolygonToGeoPolygon(polygon orb.Polygon) *GeoPolygon {
	coordinates := make([][][]float64, len(polygon))
	for i, ring := range polygon {
		coords := make([][]float64, len(ring))
		for j, p := range ring {
			coords[j] = []float64{p.Lon(), p.Lat()}
		}
		coordinates[i] = coords
	}
	return &GeoPolygon{
		Type:        "Polygon",
		Coordinates: coordinates,
	}
}

// GeoPolygonToPolygon PostGIS POLYGON を orb.Polygon に変換
func GeoPolygonToPolygon(geoPolygon *GeoPolygon) (orb.Polygon, error) {
	if geoPolygon == nil || len(geoPolygon.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: ポリゴンが空です", model.ErrInvalidGeometry)
	}
	polygon := make(orb.Polygon, len(geoPolygon.Coordinates))
	for i, coords := range geoPolygon.Coordinates {
		ring := make(orb.Ring, len(coords))
		for j, c := range coords {
			if len(c) < 2 {
				return nil, fmt.Errorf("%w: 座標の次元が不足しています", model.ErrInvalidGeometry)
			}
			ring[j] = orb.Point{c[0], c[1]}
		}
		polygon[i] = ring
	}
	return polygon, nil
}

// HexFeatureRow 1セル分の特徴量をDB保存用に変換した構造体
type HexFeatureRow struct {
	City     string             `json:"city"`
	H3Index  string             `json:"h3_index"`
	Geometry *GeoPolygon        `json:"geometry"`
	Centroid *GeoPoint          `json:"centroid"`
	Features map[string]float64 `json:"features"`
}

// TableToRows 特徴量テーブルを DB 保存用の行に変換
func TableToRows(table *model.FeatureTable) []HexFeatureRow {
	columns := table.FeatureColumns()
	rows := make([]HexFeatureRow, 0, table.Len())
	for _, c := range table.Cells {
		features := make(map[string]float64, len(columns))
		for _, col := range columns {
			features[col] = c.Features[col]
		}
		rows = append(rows, HexFeatureRow{
			City:     table.City,
			H3Index:  c.H3Index,
			Geometry: PolygonToGeoPolygon(c.Geometry),
			Centroid: PointToGeoPoint(c.Centroid()),
			Features: features,
		})
	}
	return rows
}

// RowsToTable DB の行から特徴量テーブルを復元する（H3インデックス順）
func RowsToTable(city string, rows []HexFeatureRow) (*model.FeatureTable, error) {
	table := model.NewFeatureTable(city)
	keys := make(map[string]struct{})
	for _, row := range rows {
		polygon, err := GeoPolygonToPolygon(row.Geometry)
		if err != nil {
			return nil, fmt.Errorf("セル %s: %w", row.H3Index, err)
		}
		cell := model.NewHexCell(row.H3Index, polygon)
		for k, v := range row.Features {
			cell.Features[k] = v
			keys[k] = struct{}{}
		}
		table.Cells = append(table.Cells, cell)
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	for _, col := range orderedColumns(names) {
		table.EnsureColumn(col)
	}
	table.SortByIndex()

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// orderedColumns パイプラインの出力順（予測カラムは最後）に並べ、未知のカラムは名前順で末尾に置く
func orderedColumns(names []string) []string {
	known := append(model.GetAllFeatureColumns(), model.ColumnPredictedBikePathLength)
	rank := func(name string) int {
		if i := slices.Index(known, name); i >= 0 {
			return i
		}
		return len(known)
	}
	out := slices.Clone(names)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}
