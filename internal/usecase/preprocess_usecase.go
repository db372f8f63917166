package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
	"github.com/KamilS31/LI-Project/internal/domain/service"
)

// MapRenderer パイプラインの途中経過と結果を図として出力する
type MapRenderer interface {
	HexGrid(table *model.FeatureTable, boundary orb.MultiPolygon, stage string) error
	FeatureDistribution(table *model.FeatureTable, column string) error
	Comparison(table *model.FeatureTable, actualColumn, predictedColumn string) error
}

type PreprocessUseCase interface {
	// Run は各都市の特徴量テーブルを作成する
	// 全都市のチェックポイントが揃っている場合は取得・集計を行わず読み込むだけにする
	Run(ctx context.Context, cities []model.City) ([]*model.FeatureTable, error)
}

// preprocessUseCaseImpl はPreprocessUseCaseの実装
type preprocessUseCaseImpl struct {
	gridService        *service.HexGridService
	aggregationService *service.FeatureAggregationService
	checkpoints        repository.FeatureTableRepository
	exports            []repository.FeatureTableRepository
	renderer           MapRenderer
	resolution         int
}

// NewPreprocessUseCase は新しいPreprocessUseCaseを作成
// rendererがnilの場合は図を出力しない
func NewPreprocessUseCase(
	gridService *service.HexGridService,
	aggregationService *service.FeatureAggregationService,
	checkpoints repository.FeatureTableRepository,
	renderer MapRenderer,
	resolution int,
	exports ...repository.FeatureTableRepository,
) PreprocessUseCase {
	return &preprocessUseCaseImpl{
		gridService:        gridService,
		aggregationService: aggregationService,
		checkpoints:        checkpoints,
		exports:            exports,
		renderer:           renderer,
		resolution:         resolution,
	}
}

func (u *preprocessUseCaseImpl) Run(ctx context.Context, cities []model.City) ([]*model.FeatureTable, error) {
	if len(cities) == 0 {
		return nil, fmt.Errorf("対象の都市が指定されていません")
	}

	tables, err := u.loadCheckpoints(ctx, cities)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables, err = u.preprocess(ctx, cities)
		if err != nil {
			return nil, err
		}
	}

	if err := u.export(ctx, tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// loadCheckpoints は全都市のチェックポイントが存在する場合のみ読み込む
// 1都市でも欠けていれば (nil, nil) を返す
func (u *preprocessUseCaseImpl) loadCheckpoints(ctx context.Context, cities []model.City) ([]*model.FeatureTable, error) {
	for _, city := range cities {
		exists, err := u.checkpoints.Exists(ctx, city.Name)
		if err != nil {
			return nil, fmt.Errorf("チェックポイントの確認に失敗: %w", err)
		}
		if !exists {
			return nil, nil
		}
	}

	log.Printf("📂 前処理済みデータを読み込みます")
	tables := make([]*model.FeatureTable, len(cities))
	for i, city := range cities {
		table, err := u.checkpoints.Load(ctx, city.Name)
		if err != nil {
			return nil, fmt.Errorf("%sのチェックポイント読み込みに失敗: %w", city.Name, err)
		}
		tables[i] = table
	}
	return tables, nil
}

func (u *preprocessUseCaseImpl) preprocess(ctx context.Context, cities []model.City) ([]*model.FeatureTable, error) {
	start := time.Now()
	grids := make([]*model.FeatureTable, len(cities))

	log.Printf("1) H3グリッドを生成")
	for i, city := range cities {
		grid, err := u.gridService.CreateHexGrid(city.Name, city.Bounds, u.resolution)
		if err != nil {
			return nil, fmt.Errorf("%sのグリッド生成に失敗: %w", city.Name, err)
		}
		u.render(func(r MapRenderer) error { return r.HexGrid(grid, nil, "full") })
		grids[i] = grid
	}

	log.Printf("2) 都市境界でグリッドを切り取り")
	for i, city := range cities {
		boundary, err := u.gridService.ResolveBoundary(ctx, city.Query)
		if err != nil {
			return nil, err
		}
		cropped, err := u.gridService.CropHexGrid(grids[i], boundary)
		if err != nil {
			return nil, fmt.Errorf("%sのグリッド切り取りに失敗: %w", city.Name, err)
		}
		u.render(func(r MapRenderer) error { return r.HexGrid(cropped, boundary, "cropped") })
		grids[i] = cropped
	}

	log.Printf("3) セルごとの自転車道の延長を集計")
	footprints := make([]orb.Bound, len(cities))
	for i, city := range cities {
		_, bound, err := u.gridService.Footprint(grids[i])
		if err != nil {
			return nil, fmt.Errorf("%sのフットプリント作成に失敗: %w", city.Name, err)
		}
		footprints[i] = bound

		if err := u.aggregationService.CalculateBikePathLengths(ctx, city, grids[i], bound); err != nil {
			return nil, fmt.Errorf("%sの自転車道の集計に失敗: %w", city.Name, err)
		}
		if err := u.checkpoints.Save(ctx, grids[i]); err != nil {
			return nil, fmt.Errorf("チェックポイントの保存に失敗: %w", err)
		}
		sum, _ := grids[i].Sum(model.ColumnBikePathLength)
		log.Printf("📊 %s: ユニークなH3インデックス数 %d, 自転車道の総延長 %.1f m", city.Name, grids[i].UniqueIndexCount(), sum)
	}

	log.Printf("4) 追加の特徴量を集計")
	for i, city := range cities {
		if err := u.aggregationService.AddAdditionalFeatures(ctx, city, grids[i], footprints[i]); err != nil {
			return nil, fmt.Errorf("%sの特徴量集計に失敗: %w", city.Name, err)
		}
		for _, column := range grids[i].FeatureColumns() {
			u.render(func(r MapRenderer) error { return r.FeatureDistribution(grids[i], column) })
		}
	}

	log.Printf("✅ 前処理完了: %d都市 (%v)", len(cities), time.Since(start).Round(time.Second))
	return grids, nil
}

// export は追加の保存先（PostGIS / Supabase）にテーブルを書き出す
func (u *preprocessUseCaseImpl) export(ctx context.Context, tables []*model.FeatureTable) error {
	var errs []error
	for _, store := range u.exports {
		for _, table := range tables {
			if err := store.Save(ctx, table); err != nil {
				errs = append(errs, fmt.Errorf("%sのエクスポートに失敗: %w", table.City, err))
			}
		}
	}
	return errors.Join(errs...)
}

// render は図の出力に失敗しても処理を止めない
func (u *preprocessUseCaseImpl) render(draw func(MapRenderer) error) {
	if u.renderer == nil {
		return
	}
	if err := draw(u.renderer); err != nil {
		log.Printf("⚠️  図の出力に失敗: %v", err)
	}
}
