package model

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// HexCell 六角形グリッドの1セル
type HexCell struct {
	H3Index  string             `json:"h3_index" db:"h3_index"` // H3インデックス（空間インデックスID）
	Geometry orb.Polygon        `json:"geometry" db:"geometry"` // セル境界（WGS84、経度・緯度）
	Features map[string]float64 `json:"features" db:"features"` // 集計済みの特徴量カラム
}

// NewHexCell 新しいHexCellを作成
func NewHexCell(index string, geometry orb.Polygon) *HexCell {
	return &HexCell{
		H3Index:  index,
		Geometry: geometry,
		Features: make(map[string]float64),
	}
}

// Centroid セル境界の重心（経度・緯度）
func (c *HexCell) Centroid() orb.Point {
	centroid, _ := planar.CentroidArea(c.Geometry)
	return centroid
}

// Bound セル境界の外接矩形
func (c *HexCell) Bound() orb.Bound {
	return c.Geometry.Bound()
}

// Value 特徴量の値を取得（未設定の場合はfalse）
func (c *HexCell) Value(column string) (float64, bool) {
	v, ok := c.Features[column]
	return v, ok
}

// Clone セルのディープコピーを作成
func (c *HexCell) Clone() *HexCell {
	features := make(map[string]float64, len(c.Features))
	for k, v := range c.Features {
		features[k] = v
	}
	return &HexCell{
		H3Index:  c.H3Index,
		Geometry: c.Geometry.Clone(),
		Features: features,
	}
}

// isValidGeometry ジオメトリが閉じたリングを持つポリゴンかチェック
func (c *HexCell) isValidGeometry() bool {
	if len(c.Geometry) == 0 {
		return false
	}
	for _, ring := range c.Geometry {
		if len(ring) < 4 || !ring.Closed() {
			return false
		}
	}
	return true
}
