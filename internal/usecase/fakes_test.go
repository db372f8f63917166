package usecase

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

const testMetricCRS = "+proj=utm +zone=31 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"

func testCity(name string) model.City {
	return model.City{
		Name:         name,
		Query:        name + ", Netherlands",
		Bounds:       model.CityBounds{North: 52.38, South: 52.36, East: 4.92, West: 4.88},
		MetricCRS:    testMetricCRS,
		BikePathFile: name + "_bike_paths.geojson",
	}
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

// memoryStore はチェックポイントをメモリ上に保持する
type memoryStore struct {
	tables map[string]*model.FeatureTable
	saves  []string
}

func newMemoryStore(tables ...*model.FeatureTable) *memoryStore {
	s := &memoryStore{tables: make(map[string]*model.FeatureTable)}
	for _, t := range tables {
		s.tables[t.City] = t.Clone()
	}
	return s
}

func (s *memoryStore) Save(ctx context.Context, table *model.FeatureTable) error {
	s.saves = append(s.saves, table.City)
	s.tables[table.City] = table.Clone()
	return nil
}

func (s *memoryStore) Load(ctx context.Context, city string) (*model.FeatureTable, error) {
	t, ok := s.tables[city]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrCheckpointNotFound, city)
	}
	return t.Clone(), nil
}

func (s *memoryStore) Exists(ctx context.Context, city string) (bool, error) {
	_, ok := s.tables[city]
	return ok, nil
}

type recordingRenderer struct {
	grids         []string
	distributions []string
	comparisons   []string
}

func (r *recordingRenderer) HexGrid(table *model.FeatureTable, boundary orb.MultiPolygon, stage string) error {
	r.grids = append(r.grids, table.City+":"+stage)
	return nil
}

func (r *recordingRenderer) FeatureDistribution(table *model.FeatureTable, column string) error {
	r.distributions = append(r.distributions, table.City+":"+column)
	return nil
}

func (r *recordingRenderer) Comparison(table *model.FeatureTable, actualColumn, predictedColumn string) error {
	r.comparisons = append(r.comparisons, table.City+":"+actualColumn+"/"+predictedColumn)
	return nil
}

type fakeGeocoder struct {
	center   *orb.Point
	boundary orb.MultiPolygon
	calls    int
}

func (f *fakeGeocoder) GeocodeCenter(ctx context.Context, query string) (*orb.Point, error) {
	f.calls++
	return f.center, nil
}

func (f *fakeGeocoder) GeocodeBoundary(ctx context.Context, query string) (orb.MultiPolygon, error) {
	f.calls++
	return f.boundary, nil
}

type fakeFeatureProvider struct {
	drive, walk, green, amenities, population []*model.OSMFeature
}

func (f *fakeFeatureProvider) DriveNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.drive, nil
}

func (f *fakeFeatureProvider) WalkNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.walk, nil
}

func (f *fakeFeatureProvider) GreenSpaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.green, nil
}

func (f *fakeFeatureProvider) ServiceAmenities(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.amenities, nil
}

func (f *fakeFeatureProvider) PopulatedPlaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.population, nil
}

func (f *fakeFeatureProvider) Cycleways(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return nil, nil
}

type fakeBikePaths struct {
	lines []orb.LineString
}

func (f *fakeBikePaths) LoadBikePaths(ctx context.Context, path string) ([]orb.LineString, error) {
	return f.lines, nil
}

// memoryRunRepository は実験ランをメモリ上に記録する
type memoryRunRepository struct {
	mu   sync.Mutex
	runs map[string]*model.ExperimentRun
	seq  int
}

func newMemoryRunRepository() *memoryRunRepository {
	return &memoryRunRepository{runs: make(map[string]*model.ExperimentRun)}
}

func (r *memoryRunRepository) StartRun(ctx context.Context, name string) (*model.ExperimentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	run := model.NewExperimentRun(fmt.Sprintf("run-%d", r.seq), name, time.Now())
	r.runs[run.ID] = run
	return run, nil
}

func (r *memoryRunRepository) LogParams(ctx context.Context, runID string, params map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return model.ErrRunNotFound
	}
	maps.Copy(run.Params, params)
	return nil
}

func (r *memoryRunRepository) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return model.ErrRunNotFound
	}
	maps.Copy(run.Metrics, metrics)
	return nil
}

func (r *memoryRunRepository) EndRun(ctx context.Context, runID string, status model.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return model.ErrRunNotFound
	}
	now := time.Now()
	run.Status = status
	run.EndedAt = &now
	return nil
}

func (r *memoryRunRepository) GetRun(ctx context.Context, runID string) (*model.ExperimentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, model.ErrRunNotFound
	}
	return run, nil
}
