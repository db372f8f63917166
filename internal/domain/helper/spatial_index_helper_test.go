package helper

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func squareCell(minX, minY, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: minX, Y: minY},
		{X: minX + size, Y: minY},
		{X: minX + size, Y: minY + size},
		{X: minX, Y: minY + size},
		{X: minX, Y: minY},
	}}
}

func TestFeatureIndex_ClippedLength(t *testing.T) {
	idx := NewFeatureIndex()
	idx.Insert(geom.LineString{{X: -5, Y: 5}, {X: 15, Y: 5}}, 0)
	idx.Insert(geom.LineString{{X: 2, Y: 1}, {X: 2, Y: 4}}, 0)
	idx.Insert(geom.LineString{{X: 50, Y: 50}, {X: 60, Y: 50}}, 0)
	assert.Equal(t, 3, idx.Len())

	t.Run("セル内に切り取った長さの合計", func(t *testing.T) {
		assert.InDelta(t, 13.0, idx.ClippedLength(squareCell(0, 0, 10)), 1e-9)
	})

	t.Run("隣接セルの合計は全長を超えない", func(t *testing.T) {
		left := idx.ClippedLength(squareCell(-10, 0, 10))
		right := idx.ClippedLength(squareCell(10, 0, 10))
		center := idx.ClippedLength(squareCell(0, 0, 10))
		assert.LessOrEqual(t, left+center+right, 20.0+3.0+1e-9)
	})

	t.Run("交差しないセル", func(t *testing.T) {
		assert.Zero(t, idx.ClippedLength(squareCell(100, 100, 10)))
	})
}

func TestFeatureIndex_ClippedArea(t *testing.T) {
	idx := NewFeatureIndex()
	idx.Insert(squareCell(5, 5, 10), 0)

	assert.InDelta(t, 25.0, idx.ClippedArea(squareCell(0, 0, 10)), 1e-9)
	assert.InDelta(t, 100.0, idx.ClippedArea(squareCell(5, 5, 10)), 1e-9)
	assert.Zero(t, idx.ClippedArea(squareCell(30, 30, 10)))
}

func TestFeatureIndex_Intersecting(t *testing.T) {
	idx := NewFeatureIndex()
	idx.Insert(geom.Point{X: 1, Y: 1}, 100)
	idx.Insert(geom.Point{X: 9, Y: 9}, 50)
	idx.Insert(geom.Point{X: 20, Y: 20}, 7)
	// 2つのセルにまたがる面
	idx.Insert(squareCell(8, 2, 4), 10)

	cell := squareCell(0, 0, 10)
	assert.Equal(t, 3, idx.IntersectingCount(cell))
	assert.InDelta(t, 160.0, idx.IntersectingSum(cell), 1e-9)

	neighbour := squareCell(10, 0, 10)
	assert.Equal(t, 1, idx.IntersectingCount(neighbour))
	assert.InDelta(t, 10.0, idx.IntersectingSum(neighbour), 1e-9)
}

func TestFeatureIndex_InsertSkipsEmpty(t *testing.T) {
	idx := NewFeatureIndex()
	idx.Insert(nil, 0)
	idx.Insert(geom.LineString{}, 0)
	assert.Zero(t, idx.Len())
}

func TestPolygonIntersects(t *testing.T) {
	a := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

	tests := []struct {
		name string
		b    orb.Polygon
		want bool
	}{
		{"重なる", orb.Polygon{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}}, true},
		{"内包する", orb.Polygon{{{-1, -1}, {3, -1}, {3, 3}, {-1, 3}, {-1, -1}}}, true},
		{"離れている", orb.Polygon{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}}, false},
		{"頂点を含まない交差", orb.Polygon{{{-1, 0.5}, {3, 0.5}, {3, 1.5}, {-1, 1.5}, {-1, 0.5}}}, true},
		{"空のポリゴン", orb.Polygon{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PolygonIntersects(a, tt.b))
		})
	}

	t.Run("MultiPolygon", func(t *testing.T) {
		far := orb.Polygon{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}}
		near := orb.Polygon{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}}
		assert.True(t, MultiPolygonIntersects(a, orb.MultiPolygon{far, near}))
		assert.False(t, MultiPolygonIntersects(a, orb.MultiPolygon{far}))
	})
}
