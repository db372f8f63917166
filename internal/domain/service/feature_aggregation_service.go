package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/helper"
	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// FeatureAggregationService は外部の地理データをセルごとに集計し、特徴量カラムを追加するサービス
type FeatureAggregationService struct {
	features  repository.FeatureProvider
	center    repository.CityCenterProvider
	bikePaths repository.BikePathRepository
	store     repository.FeatureTableRepository
}

// NewFeatureAggregationService は新しいFeatureAggregationServiceを生成する
func NewFeatureAggregationService(
	features repository.FeatureProvider,
	center repository.CityCenterProvider,
	bikePaths repository.BikePathRepository,
	store repository.FeatureTableRepository,
) *FeatureAggregationService {
	return &FeatureAggregationService{
		features:  features,
		center:    center,
		bikePaths: bikePaths,
		store:     store,
	}
}

// CalculateBikePathLengths はセル内の自転車道の総延長（m）を集計する
// 自転車道ファイルがない場合はOverpassのcyclewayにフォールバックする
func (s *FeatureAggregationService) CalculateBikePathLengths(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	lines, err := s.loadBikePaths(ctx, city)
	if err != nil {
		return err
	}
	lines = helper.PreClipLines(lines, footprint)
	log.Printf("🚲 %s: 自転車道 %d本", city.Name, len(lines))

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}
	idx := helper.NewFeatureIndex()
	for _, ls := range lines {
		g, err := projector.LineString(ls)
		if err != nil {
			return err
		}
		idx.Insert(g, 0)
	}

	return s.reduceCells(table, projector, model.ColumnBikePathLength, func(cell geom.Polygon) float64 {
		return idx.ClippedLength(cell)
	})
}

func (s *FeatureAggregationService) loadBikePaths(ctx context.Context, city model.City) ([]orb.LineString, error) {
	if city.BikePathFile != "" {
		lines, err := s.bikePaths.LoadBikePaths(ctx, city.BikePathFile)
		if err == nil {
			return lines, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("自転車道ファイルの読み込みに失敗: %w", err)
		}
		log.Printf("⚠️  自転車道ファイルが見つかりません (%s)、OSMのcyclewayを使用します", city.BikePathFile)
	}

	cycleways, err := s.features.Cycleways(ctx, city.Bounds.Bound())
	if err != nil {
		return nil, fmt.Errorf("cyclewayの取得に失敗: %w", err)
	}
	var lines []orb.LineString
	for _, f := range cycleways {
		lines = append(lines, helper.LineStrings(f.Geometry)...)
	}
	return lines, nil
}

// CalculateRoadLengths はセル内の主要道路と歩行者ネットワークの総延長（m）を集計する
func (s *FeatureAggregationService) CalculateRoadLengths(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	bbox := city.Bounds.Bound()

	drive, err := s.features.DriveNetwork(ctx, bbox)
	if err != nil {
		return fmt.Errorf("道路ネットワークの取得に失敗: %w", err)
	}
	var mainRoads []*model.OSMFeature
	for _, f := range drive {
		if highway, ok := f.Tag("highway"); ok && model.IsMainRoad(highway) {
			mainRoads = append(mainRoads, f)
		}
	}

	walks, err := s.features.WalkNetwork(ctx, bbox)
	if err != nil {
		return fmt.Errorf("歩行者ネットワークの取得に失敗: %w", err)
	}

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}

	roadIdx, err := indexFeatures(projector, helper.PreClip(mainRoads, footprint), nil)
	if err != nil {
		return err
	}
	walkIdx, err := indexFeatures(projector, helper.PreClip(walks, footprint), nil)
	if err != nil {
		return err
	}
	log.Printf("🛣️  %s: 主要道路 %d本 / 歩道 %d本", city.Name, roadIdx.Len(), walkIdx.Len())

	if err := s.reduceCells(table, projector, model.ColumnMainRoadsLength, func(cell geom.Polygon) float64 {
		return roadIdx.ClippedLength(cell)
	}); err != nil {
		return err
	}
	return s.reduceCells(table, projector, model.ColumnWalksLength, func(cell geom.Polygon) float64 {
		return walkIdx.ClippedLength(cell)
	})
}

// CalculateGreenSpaceAreas はセル内の緑地面積（m²）を集計する
func (s *FeatureAggregationService) CalculateGreenSpaceAreas(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	features, err := s.features.GreenSpaces(ctx, city.Bounds.Bound())
	if err != nil {
		return fmt.Errorf("緑地データの取得に失敗: %w", err)
	}

	var green []*model.OSMFeature
	for _, f := range features {
		if !f.MatchesAny(model.GreenSpaceTags) {
			continue
		}
		polygons := helper.Polygons(f.Geometry)
		if len(polygons) == 0 {
			continue
		}
		green = append(green, &model.OSMFeature{ID: f.ID, Type: f.Type, Tags: f.Tags, Geometry: orb.MultiPolygon(polygons)})
	}

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}
	idx, err := indexFeatures(projector, helper.PreClip(green, footprint), nil)
	if err != nil {
		return err
	}
	log.Printf("🌳 %s: 緑地 %d件", city.Name, idx.Len())

	return s.reduceCells(table, projector, model.ColumnGreenSpaceArea, func(cell geom.Polygon) float64 {
		return idx.ClippedArea(cell)
	})
}

// CalculateServiceAmenities はセルと交差するサービス施設（amenity / shop / office）の数を集計する
func (s *FeatureAggregationService) CalculateServiceAmenities(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	features, err := s.features.ServiceAmenities(ctx, city.Bounds.Bound())
	if err != nil {
		return fmt.Errorf("サービス施設データの取得に失敗: %w", err)
	}

	var amenities []*model.OSMFeature
	for _, f := range features {
		if f.HasAnyKey(model.ServiceAmenityKeys...) {
			amenities = append(amenities, f)
		}
	}

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}
	idx, err := indexFeatures(projector, helper.PreClip(amenities, footprint), nil)
	if err != nil {
		return err
	}
	log.Printf("🏪 %s: サービス施設 %d件", city.Name, idx.Len())

	return s.reduceCells(table, projector, model.ColumnServiceAmenityCount, func(cell geom.Polygon) float64 {
		return float64(idx.IntersectingCount(cell))
	})
}

// CalculatePopulationDensity はセルと交差する地物の人口合計をセル面積（km²）で割った人口密度を集計する
// 数値として解釈できない人口は0として扱う
func (s *FeatureAggregationService) CalculatePopulationDensity(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	features, err := s.features.PopulatedPlaces(ctx, city.Bounds.Bound())
	if err != nil {
		return fmt.Errorf("人口データの取得に失敗: %w", err)
	}

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}
	idx, err := indexFeatures(projector, helper.PreClip(features, footprint), func(f *model.OSMFeature) float64 {
		return f.Population()
	})
	if err != nil {
		return err
	}
	log.Printf("👥 %s: 人口タグ付き地物 %d件", city.Name, idx.Len())

	return s.reduceCells(table, projector, model.ColumnPopulationDensity, func(cell geom.Polygon) float64 {
		areaKm2 := math.Abs(cell.Area()) / 1e6
		if areaKm2 == 0 {
			return 0
		}
		return idx.IntersectingSum(cell) / areaKm2
	})
}

// CalculateDistanceToCenter は投影座標系でのセル中心と都市中心のユークリッド距離（m）を計算する
// 都市中心のジオコーディングは1回だけ行う
func (s *FeatureAggregationService) CalculateDistanceToCenter(ctx context.Context, city model.City, table *model.FeatureTable) error {
	center, err := s.center.GeocodeCenter(ctx, city.Query)
	if err != nil {
		return fmt.Errorf("都市中心のジオコーディングに失敗: %w", err)
	}
	if center == nil {
		return fmt.Errorf("%w: %s", model.ErrCityCenterNotFound, city.Query)
	}

	projector, err := helper.NewProjector(city.MetricCRS)
	if err != nil {
		return err
	}
	projectedCenter, err := projector.Point(*center)
	if err != nil {
		return err
	}
	log.Printf("📍 %s: 都市中心 (%.5f, %.5f)", city.Name, center.Lat(), center.Lon())

	return s.reduceCells(table, projector, model.ColumnDistanceToCityCenter, func(cell geom.Polygon) float64 {
		c := cell.Centroid()
		return math.Hypot(c.X-projectedCenter.X, c.Y-projectedCenter.Y)
	})
}

// AddAdditionalFeatures は自転車道以外の特徴量を順に集計し、ステップごとにチェックポイントを保存する
func (s *FeatureAggregationService) AddAdditionalFeatures(ctx context.Context, city model.City, table *model.FeatureTable, footprint orb.Bound) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"道路・歩道の延長", func() error { return s.CalculateRoadLengths(ctx, city, table, footprint) }},
		{"緑地面積", func() error { return s.CalculateGreenSpaceAreas(ctx, city, table, footprint) }},
		{"サービス施設数", func() error { return s.CalculateServiceAmenities(ctx, city, table, footprint) }},
		{"人口密度", func() error { return s.CalculatePopulationDensity(ctx, city, table, footprint) }},
		{"都市中心までの距離", func() error { return s.CalculateDistanceToCenter(ctx, city, table) }},
	}

	for i, step := range steps {
		start := time.Now()
		log.Printf("🚀 [%s] %d/%d %s の集計開始", city.Name, i+1, len(steps), step.name)
		if err := step.run(); err != nil {
			log.Printf("❌ [%s] %s の集計失敗: %v", city.Name, step.name, err)
			return fmt.Errorf("%sの集計失敗: %w", step.name, err)
		}
		if err := s.store.Save(ctx, table); err != nil {
			return fmt.Errorf("チェックポイントの保存失敗: %w", err)
		}
		log.Printf("✅ [%s] %s 完了 (%v)", city.Name, step.name, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// reduceCells は各セルを投影し、集計関数の結果（負値は0に丸める）をカラムに設定する
func (s *FeatureAggregationService) reduceCells(table *model.FeatureTable, projector *helper.Projector, column string, reduce func(cell geom.Polygon) float64) error {
	table.AddColumn(column)
	for i, c := range table.Cells {
		cell, err := projector.Polygon(c.Geometry)
		if err != nil {
			return fmt.Errorf("セル %s の投影に失敗: %w", c.H3Index, err)
		}
		v := reduce(cell)
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		table.Set(i, column, v)
	}
	return nil
}

// indexFeatures は地物を投影して空間インデックスに登録する
func indexFeatures(projector *helper.Projector, features []*model.OSMFeature, value func(*model.OSMFeature) float64) (*helper.FeatureIndex, error) {
	idx := helper.NewFeatureIndex()
	for _, f := range features {
		g, err := projector.Geometry(f.Geometry)
		if err != nil {
			log.Printf("⚠️  地物 %s/%d をスキップ: %v", f.Type, f.ID, err)
			continue
		}
		var v float64
		if value != nil {
			v = value(f)
		}
		idx.Insert(g, v)
	}
	return idx, nil
}
