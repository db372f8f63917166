package h3grid

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// H3Indexer はUber H3を使用した六角形グリッドのインデックス実装
type H3Indexer struct{}

// NewH3Indexer は新しいH3Indexerを生成する
func NewH3Indexer() repository.CellIndexer {
	return &H3Indexer{}
}

// CellsInPolygon はセル中心がポリゴン内に入るセルを列挙する
func (h *H3Indexer) CellsInPolygon(polygon orb.Polygon, resolution int) ([]string, error) {
	if err := model.ValidateResolution(resolution); err != nil {
		return nil, err
	}
	if len(polygon) == 0 {
		return nil, nil
	}

	geoPolygon := h3.GeoPolygon{GeoLoop: toGeoLoop(polygon[0])}
	for _, hole := range polygon[1:] {
		geoPolygon.Holes = append(geoPolygon.Holes, toGeoLoop(hole))
	}

	cells, err := h3.PolygonToCells(geoPolygon, resolution)
	if err != nil {
		return nil, fmt.Errorf("H3ポリゴン充填に失敗: %w", err)
	}

	indexes := make([]string, 0, len(cells))
	for _, c := range cells {
		indexes = append(indexes, c.String())
	}
	return indexes, nil
}

// CellBoundary はインデックスからセル境界を復元する（先頭の頂点を末尾に繰り返して閉じる）
func (h *H3Indexer) CellBoundary(index string) (orb.Polygon, error) {
	cell, err := parseCell(index)
	if err != nil {
		return nil, err
	}
	boundary, err := cell.Boundary()
	if err != nil {
		return nil, fmt.Errorf("セル境界の取得に失敗 (%s): %w", index, err)
	}

	ring := make(orb.Ring, 0, len(boundary)+1)
	for _, ll := range boundary {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, nil
}

// CellCenter はセル中心の座標を返す
func (h *H3Indexer) CellCenter(index string) (orb.Point, error) {
	cell, err := parseCell(index)
	if err != nil {
		return orb.Point{}, err
	}
	ll, err := cell.LatLng()
	if err != nil {
		return orb.Point{}, fmt.Errorf("セル中心の取得に失敗 (%s): %w", index, err)
	}
	return orb.Point{ll.Lng, ll.Lat}, nil
}

func parseCell(index string) (h3.Cell, error) {
	cell := h3.Cell(h3.IndexFromString(index))
	if !cell.IsValid() {
		return 0, fmt.Errorf("%w: %s", h3.ErrCellInvalid, index)
	}
	return cell, nil
}

// toGeoLoop は閉じたリングをH3のループに変換する（末尾の重複頂点は除く）
func toGeoLoop(ring orb.Ring) h3.GeoLoop {
	points := ring
	if len(points) > 1 && points.Closed() {
		points = points[:len(points)-1]
	}
	loop := make(h3.GeoLoop, len(points))
	for i, p := range points {
		loop[i] = h3.NewLatLng(p.Lat(), p.Lon())
	}
	return loop
}
