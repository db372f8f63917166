package model

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrInvalidBounds 境界ボックスの値が不正な場合のエラー
var ErrInvalidBounds = errors.New("invalid city bounds")

// CityBounds 都市の境界ボックス（緯度経度の四隅）
type CityBounds struct {
	North float64 `json:"north"` // 北端の緯度
	South float64 `json:"south"` // 南端の緯度
	East  float64 `json:"east"`  // 東端の経度
	West  float64 `json:"west"`  // 西端の経度
}

// Validate 境界ボックスの妥当性をチェック
func (b CityBounds) Validate() error {
	if b.North < -90 || b.North > 90 || b.South < -90 || b.South > 90 {
		return fmt.Errorf("%w: 緯度が範囲外です (north=%f, south=%f)", ErrInvalidBounds, b.North, b.South)
	}
	if b.East < -180 || b.East > 180 || b.West < -180 || b.West > 180 {
		return fmt.Errorf("%w: 経度が範囲外です (east=%f, west=%f)", ErrInvalidBounds, b.East, b.West)
	}
	if b.North <= b.South {
		return fmt.Errorf("%w: northはsouthより大きい必要があります", ErrInvalidBounds)
	}
	if b.East <= b.West {
		return fmt.Errorf("%w: eastはwestより大きい必要があります", ErrInvalidBounds)
	}
	return nil
}

// Bound orb.Bound に変換
func (b CityBounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Polygon 境界ボックスを閉じたポリゴンとして返す
func (b CityBounds) Polygon() orb.Polygon {
	return orb.Polygon{
		{
			{b.West, b.North},
			{b.East, b.North},
			{b.East, b.South},
			{b.West, b.South},
			{b.West, b.North},
		},
	}
}

// City 解析対象の都市
type City struct {
	Name         string     `json:"name"`           // チェックポイントのファイル名に使う都市名（例: "Amsterdam"）
	Query        string     `json:"query"`          // ジオコーディング用の検索文字列（例: "Amsterdam, Netherlands"）
	Bounds       CityBounds `json:"bounds"`         // 境界ボックス
	MetricCRS    string     `json:"metric_crs"`     // 長さ・面積計測に使う投影座標系（proj4形式）
	BikePathFile string     `json:"bike_path_file"` // 事前抽出済みの自転車道ジオメトリファイル
}

// CheckpointFileName チェックポイントCSVのファイル名を返す
func (c City) CheckpointFileName() string {
	return fmt.Sprintf("%s_data.csv", c.Name)
}

// PredictionFileName 予測結果CSVのファイル名を返す
func (c City) PredictionFileName() string {
	return fmt.Sprintf("%s_predictions.csv", c.Name)
}
