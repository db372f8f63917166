package service

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamilS31/LI-Project/internal/domain/helper"
	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/infrastructure/h3grid"
)

var testCity = model.City{
	Name:         "Testdam",
	Query:        "Testdam, Netherlands",
	Bounds:       model.CityBounds{North: 52.38, South: 52.36, East: 4.92, West: 4.88},
	MetricCRS:    testMetricCRS,
	BikePathFile: "testdam_bike_paths.geojson",
}

type aggregationFixture struct {
	table     *model.FeatureTable
	footprint orb.Bound
	provider  *fakeFeatureProvider
	geocoder  *fakeGeocoder
	bikePaths *fakeBikePaths
	store     *fakeStore
	svc       *FeatureAggregationService
}

func newAggregationFixture(t *testing.T) *aggregationFixture {
	t.Helper()
	grid := NewHexGridService(h3grid.NewH3Indexer(), &fakeGeocoder{})
	table, err := grid.CreateHexGrid(testCity.Name, testCity.Bounds, 8)
	require.NoError(t, err)
	require.GreaterOrEqual(t, table.Len(), 2)
	_, footprint, err := grid.Footprint(table)
	require.NoError(t, err)

	first := table.Cells[0].Centroid()
	second := table.Cells[1].Centroid()
	crossing := orb.LineString{{4.86, first.Lat()}, {4.94, first.Lat()}}

	f := &aggregationFixture{
		table:     table,
		footprint: footprint,
		provider: &fakeFeatureProvider{
			drive: []*model.OSMFeature{
				{ID: 1, Type: "way", Tags: map[string]string{"highway": "primary"}, Geometry: crossing},
				{ID: 2, Type: "way", Tags: map[string]string{"highway": "residential"}, Geometry: orb.LineString{{4.86, second.Lat()}, {4.94, second.Lat()}}},
			},
			walk: []*model.OSMFeature{
				{ID: 3, Type: "way", Tags: map[string]string{"highway": "footway"}, Geometry: crossing},
			},
			green: []*model.OSMFeature{
				{ID: 4, Type: "way", Tags: map[string]string{"leisure": "park"}, Geometry: table.Cells[0].Bound().Pad(0.0005).ToPolygon()},
			},
			amenities: []*model.OSMFeature{
				{ID: 6, Type: "node", Tags: map[string]string{"shop": "bakery"}, Geometry: first},
				{ID: 7, Type: "node", Tags: map[string]string{"amenity": "cafe"}, Geometry: second},
				{ID: 8, Type: "node", Tags: map[string]string{"office": "it"}, Geometry: orb.Point{10, 10}},
			},
			population: []*model.OSMFeature{
				{ID: 9, Type: "node", Tags: map[string]string{"population": "1000"}, Geometry: first},
				{ID: 10, Type: "node", Tags: map[string]string{"population": "unknown"}, Geometry: second},
			},
			cycleways: []*model.OSMFeature{
				{ID: 11, Type: "way", Tags: map[string]string{"highway": "cycleway"}, Geometry: crossing},
			},
		},
		geocoder:  &fakeGeocoder{center: &first},
		bikePaths: &fakeBikePaths{lines: []orb.LineString{crossing}},
		store:     &fakeStore{},
	}
	f.svc = NewFeatureAggregationService(f.provider, f.geocoder, f.bikePaths, f.store)
	return f
}

// projectedLength はフットプリント内に切り取った線の投影後の長さ
func projectedLength(t *testing.T, ls orb.LineString, bound orb.Bound) float64 {
	t.Helper()
	projector, err := helper.NewProjector(testMetricCRS)
	require.NoError(t, err)
	var total float64
	for _, part := range helper.PreClipLines([]orb.LineString{ls}, bound) {
		g, err := projector.LineString(part)
		require.NoError(t, err)
		total += g.Length()
	}
	return total
}

func cellAreaKm2(t *testing.T, cell *model.HexCell) float64 {
	t.Helper()
	projector, err := helper.NewProjector(testMetricCRS)
	require.NoError(t, err)
	g, err := projector.Polygon(cell.Geometry)
	require.NoError(t, err)
	return math.Abs(g.Area()) / 1e6
}

func assertNonNegative(t *testing.T, table *model.FeatureTable, column string) {
	t.Helper()
	values, err := table.Column(column)
	require.NoError(t, err)
	for i, v := range values {
		assert.GreaterOrEqual(t, v, 0.0, "%s[%d]", column, i)
	}
}

func TestFeatureAggregationService_CalculateBikePathLengths(t *testing.T) {
	ctx := context.Background()

	t.Run("セルごとの長さの合計はフットプリント内の全長以下", func(t *testing.T) {
		f := newAggregationFixture(t)
		require.NoError(t, f.svc.CalculateBikePathLengths(ctx, testCity, f.table, f.footprint))
		assertNonNegative(t, f.table, model.ColumnBikePathLength)

		sum, err := f.table.Sum(model.ColumnBikePathLength)
		require.NoError(t, err)
		total := projectedLength(t, f.bikePaths.lines[0], f.footprint)
		assert.Greater(t, sum, 0.0)
		assert.LessOrEqual(t, sum, total+1e-6)

		first, err := f.table.Get(0, model.ColumnBikePathLength)
		require.NoError(t, err)
		assert.Greater(t, first, 0.0)
	})

	t.Run("ファイルがなければcyclewayを使う", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.bikePaths.lines = nil
		f.bikePaths.err = os.ErrNotExist
		require.NoError(t, f.svc.CalculateBikePathLengths(ctx, testCity, f.table, f.footprint))
		sum, err := f.table.Sum(model.ColumnBikePathLength)
		require.NoError(t, err)
		assert.Greater(t, sum, 0.0)
	})

	t.Run("読み込みエラーはそのまま返す", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.bikePaths.err = errors.New("broken parquet")
		err := f.svc.CalculateBikePathLengths(ctx, testCity, f.table, f.footprint)
		assert.Error(t, err)
	})
}

func TestFeatureAggregationService_CalculateRoadLengths(t *testing.T) {
	ctx := context.Background()

	t.Run("主要道路のみを集計する", func(t *testing.T) {
		f := newAggregationFixture(t)
		require.NoError(t, f.svc.CalculateRoadLengths(ctx, testCity, f.table, f.footprint))

		roads, err := f.table.Sum(model.ColumnMainRoadsLength)
		require.NoError(t, err)
		walks, err := f.table.Sum(model.ColumnWalksLength)
		require.NoError(t, err)
		// 主要道路と歩道は同じ線なので同じ長さになる
		assert.InDelta(t, walks, roads, 1e-6)
		assert.LessOrEqual(t, roads, projectedLength(t, f.provider.drive[0].Geometry.(orb.LineString), f.footprint)+1e-6)
	})

	t.Run("主要道路がなければ0", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.provider.drive = f.provider.drive[1:]
		require.NoError(t, f.svc.CalculateRoadLengths(ctx, testCity, f.table, f.footprint))
		roads, err := f.table.Sum(model.ColumnMainRoadsLength)
		require.NoError(t, err)
		assert.Zero(t, roads)
	})
}

func TestFeatureAggregationService_CalculateGreenSpaceAreas(t *testing.T) {
	ctx := context.Background()

	t.Run("緑地に覆われたセルはセル面積になる", func(t *testing.T) {
		f := newAggregationFixture(t)
		require.NoError(t, f.svc.CalculateGreenSpaceAreas(ctx, testCity, f.table, f.footprint))
		assertNonNegative(t, f.table, model.ColumnGreenSpaceArea)

		first, err := f.table.Get(0, model.ColumnGreenSpaceArea)
		require.NoError(t, err)
		assert.InEpsilon(t, cellAreaKm2(t, f.table.Cells[0])*1e6, first, 1e-6)
	})

	t.Run("gardenは緑地に含めない", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.provider.green[0].Tags = map[string]string{"leisure": "garden"}
		require.NoError(t, f.svc.CalculateGreenSpaceAreas(ctx, testCity, f.table, f.footprint))
		sum, err := f.table.Sum(model.ColumnGreenSpaceArea)
		require.NoError(t, err)
		assert.Zero(t, sum)
	})
}

func TestFeatureAggregationService_CalculateServiceAmenities(t *testing.T) {
	f := newAggregationFixture(t)
	require.NoError(t, f.svc.CalculateServiceAmenities(context.Background(), testCity, f.table, f.footprint))

	counts, err := f.table.Column(model.ColumnServiceAmenityCount)
	require.NoError(t, err)
	assert.Equal(t, 1.0, counts[0])
	assert.Equal(t, 1.0, counts[1])

	sum, err := f.table.Sum(model.ColumnServiceAmenityCount)
	require.NoError(t, err)
	assert.Equal(t, 2.0, sum)
}

func TestFeatureAggregationService_CalculatePopulationDensity(t *testing.T) {
	f := newAggregationFixture(t)
	require.NoError(t, f.svc.CalculatePopulationDensity(context.Background(), testCity, f.table, f.footprint))
	assertNonNegative(t, f.table, model.ColumnPopulationDensity)

	// 密度 × 面積の合計は人口の合計に戻る（数値でない人口は0）
	var population float64
	for i, c := range f.table.Cells {
		density, err := f.table.Get(i, model.ColumnPopulationDensity)
		require.NoError(t, err)
		population += density * cellAreaKm2(t, c)
	}
	assert.InDelta(t, 1000, population, 1e-6)
}

func TestFeatureAggregationService_CalculatePopulationDensity_NonFinite(t *testing.T) {
	f := newAggregationFixture(t)
	first := f.table.Cells[0].Centroid()
	f.provider.population = []*model.OSMFeature{
		{ID: 20, Type: "node", Tags: map[string]string{"population": "NaN"}, Geometry: first},
		{ID: 21, Type: "node", Tags: map[string]string{"population": "1000"}, Geometry: first},
		{ID: 22, Type: "node", Tags: map[string]string{"population": "Infinity"}, Geometry: first},
	}
	require.NoError(t, f.svc.CalculatePopulationDensity(context.Background(), testCity, f.table, f.footprint))

	// NaN・Infのタグだけを0とし、同じセルの有効な人口は残す
	density, err := f.table.Get(0, model.ColumnPopulationDensity)
	require.NoError(t, err)
	assert.InDelta(t, 1000/cellAreaKm2(t, f.table.Cells[0]), density, 1e-6)
}

func TestFeatureAggregationService_CalculateDistanceToCenter(t *testing.T) {
	ctx := context.Background()

	t.Run("中心セルの距離はほぼ0", func(t *testing.T) {
		f := newAggregationFixture(t)
		require.NoError(t, f.svc.CalculateDistanceToCenter(ctx, testCity, f.table))
		assertNonNegative(t, f.table, model.ColumnDistanceToCityCenter)

		distances, err := f.table.Column(model.ColumnDistanceToCityCenter)
		require.NoError(t, err)
		assert.InDelta(t, 0, distances[0], 5)
		assert.Greater(t, distances[1], 100.0)
		assert.Equal(t, 1, f.geocoder.calls)
	})

	t.Run("都市中心が見つからない", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.geocoder.center = nil
		err := f.svc.CalculateDistanceToCenter(ctx, testCity, f.table)
		assert.ErrorIs(t, err, model.ErrCityCenterNotFound)
	})
}

func TestFeatureAggregationService_AddAdditionalFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("ステップごとにチェックポイントを保存する", func(t *testing.T) {
		f := newAggregationFixture(t)
		require.NoError(t, f.svc.AddAdditionalFeatures(ctx, testCity, f.table, f.footprint))

		assert.Len(t, f.store.saved, 5)
		assert.Equal(t, []string{
			model.ColumnH3Index,
			model.ColumnGeometry,
			model.ColumnMainRoadsLength,
			model.ColumnWalksLength,
		}, f.store.columns[0])
		for _, column := range model.GetAllFeatureColumns()[1:] {
			assert.True(t, f.table.HasColumn(column), column)
			assertNonNegative(t, f.table, column)
		}
	})

	t.Run("失敗したステップ以降は保存しない", func(t *testing.T) {
		f := newAggregationFixture(t)
		f.geocoder.center = nil
		err := f.svc.AddAdditionalFeatures(ctx, testCity, f.table, f.footprint)
		assert.ErrorIs(t, err, model.ErrCityCenterNotFound)
		assert.Len(t, f.store.saved, 4)
	})
}
