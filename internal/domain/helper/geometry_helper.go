package helper

import (
	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// LineStrings はジオメトリに含まれる線分をすべて取り出す
// ポリゴンの場合は外周・内周リングを線として扱う
func LineStrings(g orb.Geometry) []orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		if len(v) < 2 {
			return nil
		}
		return []orb.LineString{v}
	case orb.MultiLineString:
		var out []orb.LineString
		for _, ls := range v {
			out = append(out, LineStrings(ls)...)
		}
		return out
	case orb.Ring:
		return LineStrings(orb.LineString(v))
	case orb.Polygon:
		var out []orb.LineString
		for _, r := range v {
			out = append(out, LineStrings(r)...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.LineString
		for _, p := range v {
			out = append(out, LineStrings(p)...)
		}
		return out
	case orb.Collection:
		var out []orb.LineString
		for _, c := range v {
			out = append(out, LineStrings(c)...)
		}
		return out
	}
	return nil
}

// Polygons はジオメトリに含まれる面をすべて取り出す
func Polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 || len(v[0]) < 4 {
			return nil
		}
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		var out []orb.Polygon
		for _, p := range v {
			out = append(out, Polygons(p)...)
		}
		return out
	case orb.Bound:
		return []orb.Polygon{v.ToPolygon()}
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range v {
			out = append(out, Polygons(c)...)
		}
		return out
	}
	return nil
}

// PreClip は地物をフットプリントの外接矩形で切り取り、範囲外の地物を除外する
// 元の地物は変更せず、切り取ったジオメトリを持つコピーを返す
func PreClip(features []*model.OSMFeature, bound orb.Bound) []*model.OSMFeature {
	var out []*model.OSMFeature
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !bound.Intersects(f.Geometry.Bound()) {
			continue
		}
		clipped := clip.Geometry(bound, orb.Clone(f.Geometry))
		if clipped == nil || isEmpty(clipped) {
			continue
		}
		out = append(out, &model.OSMFeature{
			ID:       f.ID,
			Type:     f.Type,
			Tags:     f.Tags,
			Geometry: clipped,
		})
	}
	return out
}

// PreClipLines は線ジオメトリを外接矩形で切り取る
func PreClipLines(lines []orb.LineString, bound orb.Bound) []orb.LineString {
	var out []orb.LineString
	for _, ls := range lines {
		if !bound.Intersects(ls.Bound()) {
			continue
		}
		clipped := clip.MultiLineString(bound, orb.MultiLineString{ls.Clone()})
		for _, part := range clipped {
			if len(part) >= 2 {
				out = append(out, part)
			}
		}
	}
	return out
}

func isEmpty(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.LineString:
		return len(v) < 2
	case orb.MultiLineString:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		return len(v) == 0
	case orb.MultiPoint:
		return len(v) == 0
	case orb.Collection:
		return len(v) == 0
	}
	return false
}

// ToGeomPoint orb.Point → geom.Point
func ToGeomPoint(p orb.Point) geom.Point {
	return geom.Point{X: p.X(), Y: p.Y()}
}

// ToGeomLineString orb.LineString → geom.LineString
func ToGeomLineString(ls orb.LineString) geom.LineString {
	out := make(geom.LineString, len(ls))
	for i, p := range ls {
		out[i] = ToGeomPoint(p)
	}
	return out
}

// ToGeomPolygon orb.Polygon → geom.Polygon
func ToGeomPolygon(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, r := range p {
		ring := make([]geom.Point, len(r))
		for j, pt := range r {
			ring[j] = ToGeomPoint(pt)
		}
		out[i] = ring
	}
	return out
}

// FromGeomPoint geom.Point → orb.Point
func FromGeomPoint(p geom.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}
