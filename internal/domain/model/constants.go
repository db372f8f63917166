package model

import (
	"slices"
	"strings"
)

// 特徴量テーブルのカラム名
const (
	ColumnH3Index                 = "h3_index"
	ColumnGeometry                = "geometry"
	ColumnBikePathLength          = "bike_path_length"
	ColumnMainRoadsLength         = "main_roads_length"
	ColumnWalksLength             = "walks_length"
	ColumnGreenSpaceArea          = "green_space_area"
	ColumnServiceAmenityCount     = "service_amenity_count"
	ColumnPopulationDensity       = "population_density"
	ColumnDistanceToCityCenter    = "distance_to_city_center"
	ColumnPredictedBikePathLength = "predicted_bike_path_length"
)

// DefaultH3Resolution グリッド生成のデフォルト解像度
const DefaultH3Resolution = 7

// MainRoadTypes 主要道路として扱うhighwayタグの値
var MainRoadTypes = []string{
	"secondary",
	"primary",
	"tertiary",
	"busway",
	"motorway_link",
	"motorway",
}

// GreenSpaceTags 緑地として扱うOSMタグ（キー → 値の候補）
var GreenSpaceTags = map[string][]string{
	"leisure": {"park"},
	"landuse": {"recreation_ground", "forest"},
	"natural": {"wood"},
}

// ServiceAmenityKeys サービス施設として扱うOSMタグのキー（値は問わない）
var ServiceAmenityKeys = []string{"amenity", "shop", "office"}

// PopulationKey 人口を表すOSMタグのキー
const PopulationKey = "population"

// IdentifierColumns 学習時に説明変数から除外する識別子カラム
var IdentifierColumns = []string{ColumnH3Index, ColumnGeometry}

// IsMainRoad highwayタグの値が主要道路かどうかを判定する
// 複数値（"primary;secondary"）の場合は先頭の値で判定する
func IsMainRoad(highway string) bool {
	first, _, _ := strings.Cut(highway, ";")
	return slices.Contains(MainRoadTypes, strings.TrimSpace(first))
}

// GetAllFeatureColumns パイプラインが付与する特徴量カラムを出力順に返す
func GetAllFeatureColumns() []string {
	return []string{
		ColumnBikePathLength,
		ColumnMainRoadsLength,
		ColumnWalksLength,
		ColumnGreenSpaceArea,
		ColumnServiceAmenityCount,
		ColumnPopulationDensity,
		ColumnDistanceToCityCenter,
	}
}
