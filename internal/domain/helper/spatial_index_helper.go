package helper

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// FeatureIndex 投影済みジオメトリの空間インデックス
// セルごとの切り取り・集計の候補をR-treeで絞り込む
type FeatureIndex struct {
	tree *rtree.Rtree
	size int
}

type indexedGeom struct {
	geom.Geom
	value float64
}

// NewFeatureIndex 空のインデックスを作成
func NewFeatureIndex() *FeatureIndex {
	return &FeatureIndex{tree: rtree.NewTree(25, 50)}
}

// Insert ジオメトリと付随する値（人口など）を登録する
func (idx *FeatureIndex) Insert(g geom.Geom, value float64) {
	if g == nil || g.Len() == 0 {
		return
	}
	idx.tree.Insert(&indexedGeom{Geom: g, value: value})
	idx.size++
}

// Len 登録済みのジオメトリ数
func (idx *FeatureIndex) Len() int {
	return idx.size
}

func (idx *FeatureIndex) candidates(cell geom.Polygon) []*indexedGeom {
	found := idx.tree.SearchIntersect(cell.Bounds())
	out := make([]*indexedGeom, 0, len(found))
	for _, g := range found {
		out = append(out, g.(*indexedGeom))
	}
	return out
}

// ClippedLength セル内に切り取った線の長さの合計
func (idx *FeatureIndex) ClippedLength(cell geom.Polygon) float64 {
	var total float64
	for _, c := range idx.candidates(cell) {
		l, ok := c.Geom.(geom.Linear)
		if !ok {
			continue
		}
		clipped := l.Clip(cell)
		if clipped == nil {
			continue
		}
		total += clipped.Length()
	}
	return total
}

// ClippedArea セルと重なる面積の合計
func (idx *FeatureIndex) ClippedArea(cell geom.Polygon) float64 {
	var total float64
	for _, c := range idx.candidates(cell) {
		p, ok := c.Geom.(geom.Polygonal)
		if !ok {
			continue
		}
		isect := cell.Intersection(p)
		if isect == nil {
			continue
		}
		total += math.Abs(isect.Area())
	}
	return total
}

// IntersectingCount セルと交差するジオメトリの数
// 境界をまたぐジオメトリは接する全セルで数える
func (idx *FeatureIndex) IntersectingCount(cell geom.Polygon) int {
	var count int
	for _, c := range idx.candidates(cell) {
		if intersectsCell(c.Geom, cell) {
			count++
		}
	}
	return count
}

// IntersectingSum セルと交差するジオメトリの値の合計
func (idx *FeatureIndex) IntersectingSum(cell geom.Polygon) float64 {
	var total float64
	for _, c := range idx.candidates(cell) {
		if intersectsCell(c.Geom, cell) {
			total += c.value
		}
	}
	return total
}

func intersectsCell(g geom.Geom, cell geom.Polygon) bool {
	switch v := g.(type) {
	case geom.Point:
		return v.Within(cell) != geom.Outside
	case geom.MultiPoint:
		return anyPointWithin(v, cell)
	case geom.Linear:
		if anyPointWithin(v, cell) {
			return true
		}
		clipped := v.Clip(cell)
		return clipped != nil && clipped.Length() > 0
	case geom.Polygonal:
		if anyPointWithin(v, cell) || anyPointWithin(cell, v) {
			return true
		}
		isect := cell.Intersection(v)
		return isect != nil && math.Abs(isect.Area()) > 0
	}
	return false
}

func anyPointWithin(g geom.Geom, poly geom.Polygonal) bool {
	next := g.Points()
	for i := 0; i < g.Len(); i++ {
		if next().Within(poly) != geom.Outside {
			return true
		}
	}
	return false
}

// PolygonIntersects 2つのポリゴン（WGS84）が交差するか判定する
// 頂点の包含で判定できない場合のみ面積のある交差を計算する
func PolygonIntersects(a orb.Polygon, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, p := range a[0] {
		if planar.PolygonContains(b, p) {
			return true
		}
	}
	for _, p := range b[0] {
		if planar.PolygonContains(a, p) {
			return true
		}
	}
	isect := ToGeomPolygon(a).Intersection(ToGeomPolygon(b))
	return isect != nil && math.Abs(isect.Area()) > 0
}

// MultiPolygonIntersects ポリゴンがMultiPolygonのいずれかと交差するか判定する
func MultiPolygonIntersects(p orb.Polygon, mp orb.MultiPolygon) bool {
	for _, q := range mp {
		if PolygonIntersects(p, q) {
			return true
		}
	}
	return false
}
