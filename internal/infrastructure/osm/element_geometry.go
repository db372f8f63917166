package osm

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// geometryMode 閉じたウェイを線として扱うか面として扱うか
type geometryMode int

const (
	lineGeometry geometryMode = iota
	areaGeometry
)

// geometry は要素をorbのジオメトリに変換する（変換できない場合はnil）
func (e element) geometry(mode geometryMode) orb.Geometry {
	switch e.Type {
	case "node":
		return orb.Point{e.Lon, e.Lat}
	case "way":
		ls := toLineString(e.Geometry)
		if len(ls) < 2 {
			return nil
		}
		if mode == areaGeometry && len(ls) >= 4 && ls[0] == ls[len(ls)-1] {
			return orb.Polygon{orb.Ring(ls)}
		}
		return ls
	case "relation":
		return e.relationGeometry(mode)
	}
	return nil
}

func (e element) relationGeometry(mode geometryMode) orb.Geometry {
	var outer, inner, lines []orb.LineString
	for _, m := range e.Members {
		if m.Type != "way" {
			continue
		}
		ls := toLineString(m.Geometry)
		if len(ls) < 2 {
			continue
		}
		switch m.Role {
		case "inner":
			inner = append(inner, ls)
		case "outer", "":
			outer = append(outer, ls)
		default:
			lines = append(lines, ls)
		}
	}

	if mode == lineGeometry {
		all := append(append(outer, inner...), lines...)
		if len(all) == 0 {
			return nil
		}
		return orb.MultiLineString(all)
	}

	outerRings := assembleRings(outer)
	if len(outerRings) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, len(outerRings))
	for i, r := range outerRings {
		mp[i] = orb.Polygon{r}
	}
	// 内周リングは最初の頂点を含む外周ポリゴンの穴にする
	for _, hole := range assembleRings(inner) {
		for i := range mp {
			if planar.RingContains(mp[i][0], hole[0]) {
				mp[i] = append(mp[i], hole)
				break
			}
		}
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}

func toLineString(points []latLon) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// assembleRings は端点を共有するウェイをつなげて閉じたリングを作る
// 閉じられなかった断片は捨てる
func assembleRings(segments []orb.LineString) []orb.Ring {
	remaining := make([]orb.LineString, 0, len(segments))
	for _, s := range segments {
		remaining = append(remaining, s.Clone())
	}

	var rings []orb.Ring
	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]

		for current[0] != current[len(current)-1] {
			extended := false
			for i, s := range remaining {
				end := current[len(current)-1]
				switch {
				case s[0] == end:
					current = append(current, s[1:]...)
				case s[len(s)-1] == end:
					rev := s.Clone()
					rev.Reverse()
					current = append(current, rev[1:]...)
				default:
					continue
				}
				remaining = append(remaining[:i], remaining[i+1:]...)
				extended = true
				break
			}
			if !extended {
				break
			}
		}

		if len(current) >= 4 && current[0] == current[len(current)-1] {
			rings = append(rings, orb.Ring(current))
		}
	}
	return rings
}
