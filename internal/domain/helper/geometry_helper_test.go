package helper

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

func TestPreClip(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	crossing := &model.OSMFeature{ID: 1, Type: "way", Geometry: orb.LineString{{-1, 0.5}, {2, 0.5}}}
	outside := &model.OSMFeature{ID: 2, Type: "way", Geometry: orb.LineString{{5, 5}, {6, 6}}}
	point := &model.OSMFeature{ID: 3, Type: "node", Geometry: orb.Point{0.5, 0.5}}
	empty := &model.OSMFeature{ID: 4, Type: "way"}

	clipped := PreClip([]*model.OSMFeature{crossing, outside, point, empty, nil}, bound)
	require.Len(t, clipped, 2)

	t.Run("範囲外の地物は除外される", func(t *testing.T) {
		assert.Equal(t, int64(1), clipped[0].ID)
		assert.Equal(t, int64(3), clipped[1].ID)
	})

	t.Run("外接矩形で切り取られる", func(t *testing.T) {
		assert.Equal(t, bound.Min.Lon(), clipped[0].Geometry.Bound().Min.Lon())
		assert.Equal(t, bound.Max.Lon(), clipped[0].Geometry.Bound().Max.Lon())
	})

	t.Run("元の地物は変更されない", func(t *testing.T) {
		assert.Equal(t, orb.LineString{{-1, 0.5}, {2, 0.5}}, crossing.Geometry)
	})
}

func TestPreClipLines(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	lines := PreClipLines([]orb.LineString{
		{{-1, 0.5}, {2, 0.5}},
		{{3, 3}, {4, 4}},
	}, bound)
	require.Len(t, lines, 1)
	assert.Equal(t, bound.Min.Lon(), lines[0].Bound().Min.Lon())
	assert.Equal(t, bound.Max.Lon(), lines[0].Bound().Max.Lon())
}

func TestLineStringsAndPolygons(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

	assert.Len(t, LineStrings(orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}}}), 1)
	assert.Len(t, LineStrings(square), 1)
	assert.Nil(t, LineStrings(orb.Point{1, 1}))

	assert.Len(t, Polygons(orb.MultiPolygon{square, square}), 2)
	assert.Len(t, Polygons(orb.Collection{square, orb.Point{0, 0}}), 1)
	assert.Nil(t, Polygons(orb.LineString{{0, 0}, {1, 1}}))
}
