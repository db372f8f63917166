package config

import "github.com/KamilS31/LI-Project/internal/domain/model"

// Amsterdam 学習に使う都市
var Amsterdam = model.City{
	Name:  "Amsterdam",
	Query: "Amsterdam, Netherlands",
	Bounds: model.CityBounds{
		North: 52.441157,
		South: 52.2688,
		East:  5.1127658,
		West:  4.728073,
	},
	MetricCRS:    "+proj=utm +zone=31 +ellps=WGS84 +datum=WGS84 +units=m +no_defs",
	BikePathFile: "amsterdam_bike_paths_extended.parquet",
}

// Krakow 学習済みモデルを適用する都市
var Krakow = model.City{
	Name:  "Krakow",
	Query: "Kraków, Poland",
	Bounds: model.CityBounds{
		North: 50.1257,
		South: 49.9639,
		East:  20.215,
		West:  19.7946,
	},
	MetricCRS:    "+proj=utm +zone=34 +ellps=WGS84 +datum=WGS84 +units=m +no_defs",
	BikePathFile: "krakow_bike_paths_extended.parquet",
}

// Cities 学習都市・適用先都市の順
func Cities() (train, target model.City) {
	return Amsterdam, Krakow
}
