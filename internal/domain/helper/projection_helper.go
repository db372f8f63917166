package helper

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

// Projector はWGS84（経度・緯度）からメートル単位の投影座標系へ変換する
type Projector struct {
	forward proj.Transformer
}

// NewProjector proj4形式の座標系定義からProjectorを作成
func NewProjector(metricCRS string) (*Projector, error) {
	src, err := proj.Parse("WGS84")
	if err != nil {
		return nil, fmt.Errorf("WGS84座標系の解析に失敗: %w", err)
	}
	dst, err := proj.Parse(metricCRS)
	if err != nil {
		return nil, fmt.Errorf("投影座標系の解析に失敗 (%s): %w", metricCRS, err)
	}
	forward, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("座標変換の作成に失敗: %w", err)
	}
	return &Projector{forward: forward}, nil
}

// Point 1点を投影する
func (p *Projector) Point(pt orb.Point) (geom.Point, error) {
	x, y, err := p.forward(pt.Lon(), pt.Lat())
	if err != nil {
		return geom.Point{}, fmt.Errorf("座標変換に失敗 (%f, %f): %w", pt.Lon(), pt.Lat(), err)
	}
	return geom.Point{X: x, Y: y}, nil
}

// LineString 線を投影する
func (p *Projector) LineString(ls orb.LineString) (geom.LineString, error) {
	out := make(geom.LineString, len(ls))
	for i, pt := range ls {
		gp, err := p.Point(pt)
		if err != nil {
			return nil, err
		}
		out[i] = gp
	}
	return out, nil
}

// Polygon ポリゴンを投影する
func (p *Projector) Polygon(poly orb.Polygon) (geom.Polygon, error) {
	out := make(geom.Polygon, len(poly))
	for i, r := range poly {
		path, err := p.LineString(orb.LineString(r))
		if err != nil {
			return nil, err
		}
		out[i] = geom.Path(path)
	}
	return out, nil
}

// Polygons 複数ポリゴンをまとめて投影し、MultiPolygonとして返す
func (p *Projector) Polygons(polys []orb.Polygon) (geom.MultiPolygon, error) {
	out := make(geom.MultiPolygon, 0, len(polys))
	for _, poly := range polys {
		gp, err := p.Polygon(poly)
		if err != nil {
			return nil, err
		}
		out = append(out, gp)
	}
	return out, nil
}

// Geometry 任意のorbジオメトリを対応するgeomジオメトリに投影する
// 点・線・面が混在するコレクションは扱わない
func (p *Projector) Geometry(g orb.Geometry) (geom.Geom, error) {
	switch v := g.(type) {
	case orb.Point:
		return p.Point(v)
	case orb.MultiPoint:
		out := make(geom.MultiPoint, len(v))
		for i, pt := range v {
			gp, err := p.Point(pt)
			if err != nil {
				return nil, err
			}
			out[i] = gp
		}
		return out, nil
	case orb.LineString:
		return p.LineString(v)
	case orb.MultiLineString:
		out := make(geom.MultiLineString, len(v))
		for i, ls := range v {
			gl, err := p.LineString(ls)
			if err != nil {
				return nil, err
			}
			out[i] = gl
		}
		return out, nil
	case orb.Ring:
		return p.Polygon(orb.Polygon{v})
	case orb.Polygon:
		return p.Polygon(v)
	case orb.MultiPolygon:
		return p.Polygons(v)
	case orb.Bound:
		return p.Polygon(v.ToPolygon())
	}
	return nil, fmt.Errorf("未対応のジオメトリ型です: %T", g)
}
