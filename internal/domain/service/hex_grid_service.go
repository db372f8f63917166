package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/helper"
	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// HexGridService は都市の境界ボックスから六角形グリッドを生成・切り取りするサービス
type HexGridService struct {
	indexer  repository.CellIndexer
	boundary repository.BoundaryProvider
}

// NewHexGridService は新しいHexGridServiceを生成する
func NewHexGridService(indexer repository.CellIndexer, boundary repository.BoundaryProvider) *HexGridService {
	return &HexGridService{
		indexer:  indexer,
		boundary: boundary,
	}
}

// CreateHexGrid は境界ボックスを指定解像度の六角形セルで敷き詰める
// セルはH3インデックス順に並ぶ
func (s *HexGridService) CreateHexGrid(city string, bounds model.CityBounds, resolution int) (*model.FeatureTable, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateResolution(resolution); err != nil {
		return nil, err
	}

	indexes, err := s.indexer.CellsInPolygon(bounds.Polygon(), resolution)
	if err != nil {
		return nil, fmt.Errorf("グリッドセルの列挙に失敗: %w", err)
	}
	sort.Strings(indexes)

	table := model.NewFeatureTable(city)
	seen := make(map[string]struct{}, len(indexes))
	for _, index := range indexes {
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}

		polygon, err := s.indexer.CellBoundary(index)
		if err != nil {
			return nil, fmt.Errorf("セル境界の取得に失敗: %w", err)
		}
		table.Cells = append(table.Cells, model.NewHexCell(index, polygon))
	}

	log.Printf("🔷 %s: 解像度%dで%dセルを生成", city, resolution, table.Len())
	return table, nil
}

// CellPolygon はインデックスからセルのポリゴンを復元する
func (s *HexGridService) CellPolygon(index string) (orb.Polygon, error) {
	return s.indexer.CellBoundary(index)
}

// ResolveBoundary はジオコーダーで都市の行政境界を取得する
func (s *HexGridService) ResolveBoundary(ctx context.Context, query string) (orb.MultiPolygon, error) {
	boundary, err := s.boundary.GeocodeBoundary(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("都市境界のジオコーディングに失敗: %w", err)
	}
	if len(boundary) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrBoundaryNotFound, query)
	}
	return boundary, nil
}

// CropHexGrid は境界と交差するセルだけを残した新しいテーブルを返す
// 一部が境界外にはみ出すセルも残す
func (s *HexGridService) CropHexGrid(grid *model.FeatureTable, boundary orb.MultiPolygon) (*model.FeatureTable, error) {
	if len(boundary) == 0 {
		return nil, model.ErrBoundaryNotFound
	}
	bound := boundary.Bound()

	cropped := grid.Filter(func(c *model.HexCell) bool {
		if !bound.Intersects(c.Bound()) {
			return false
		}
		return helper.MultiPolygonIntersects(c.Geometry, boundary)
	})

	log.Printf("✂️  %s: %d → %dセル", grid.City, grid.Len(), cropped.Len())
	return cropped, nil
}

// Footprint はグリッド全体のフットプリント（全セルのポリゴン）と外接矩形を返す
func (s *HexGridService) Footprint(grid *model.FeatureTable) (orb.MultiPolygon, orb.Bound, error) {
	if grid.Len() == 0 {
		return nil, orb.Bound{}, model.ErrEmptyGrid
	}
	footprint := make(orb.MultiPolygon, 0, grid.Len())
	bound := grid.Cells[0].Bound()
	for _, c := range grid.Cells {
		footprint = append(footprint, c.Geometry)
		bound = bound.Union(c.Bound())
	}
	return footprint, bound, nil
}
