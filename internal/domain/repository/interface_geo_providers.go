package repository

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// CellIndexer 六角形グリッドの空間インデックス（H3）を扱う
type CellIndexer interface {
	// CellsInPolygon セル中心がポリゴン内にある全セルのインデックスを返す
	CellsInPolygon(polygon orb.Polygon, resolution int) ([]string, error)
	// CellBoundary インデックスからセル境界（閉じたリング）を返す
	CellBoundary(index string) (orb.Polygon, error)
	// CellCenter インデックスからセル中心を返す
	CellCenter(index string) (orb.Point, error)
}

// BoundaryProvider 都市名から行政境界ポリゴンを取得する
type BoundaryProvider interface {
	// GeocodeBoundary 該当なしの場合は (nil, nil) を返す
	GeocodeBoundary(ctx context.Context, query string) (orb.MultiPolygon, error)
}

// CityCenterProvider 都市名から中心座標を取得する
type CityCenterProvider interface {
	// GeocodeCenter 該当なしの場合は (nil, nil) を返す
	GeocodeCenter(ctx context.Context, query string) (*orb.Point, error)
}

// FeatureProvider 境界ボックス内のOSM地物を取得する
type FeatureProvider interface {
	DriveNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
	WalkNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
	GreenSpaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
	ServiceAmenities(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
	PopulatedPlaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
	Cycleways(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error)
}

// BikePathRepository 事前抽出済みの自転車道ジオメトリを読み込む
type BikePathRepository interface {
	// LoadBikePaths ファイルが存在しない場合は os.ErrNotExist をラップして返す
	LoadBikePaths(ctx context.Context, path string) ([]orb.LineString, error)
}
