package service

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

const testMetricCRS = "+proj=utm +zone=31 +ellps=WGS84 +datum=WGS84 +units=m +no_defs"

type fakeFeatureProvider struct {
	drive, walk, green, amenities, population, cycleways []*model.OSMFeature
	err                                                  error
}

func (f *fakeFeatureProvider) DriveNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.drive, f.err
}

func (f *fakeFeatureProvider) WalkNetwork(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.walk, f.err
}

func (f *fakeFeatureProvider) GreenSpaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.green, f.err
}

func (f *fakeFeatureProvider) ServiceAmenities(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.amenities, f.err
}

func (f *fakeFeatureProvider) PopulatedPlaces(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.population, f.err
}

func (f *fakeFeatureProvider) Cycleways(ctx context.Context, bound orb.Bound) ([]*model.OSMFeature, error) {
	return f.cycleways, f.err
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

type fakeBikePaths struct {
	lines []orb.LineString
	err   error
}

func (f *fakeBikePaths) LoadBikePaths(ctx context.Context, path string) ([]orb.LineString, error) {
	return f.lines, f.err
}

type fakeStore struct {
	saved   []int
	columns [][]string
}

func (f *fakeStore) Save(ctx context.Context, table *model.FeatureTable) error {
	f.saved = append(f.saved, table.Len())
	f.columns = append(f.columns, append([]string(nil), table.Columns...))
	return nil
}

func (f *fakeStore) Load(ctx context.Context, city string) (*model.FeatureTable, error) {
	return nil, model.ErrCheckpointNotFound
}

func (f *fakeStore) Exists(ctx context.Context, city string) (bool, error) {
	return false, nil
}
