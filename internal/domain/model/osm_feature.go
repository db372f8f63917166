package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// OSMFeature OpenStreetMapから取得した地物（ノード・ウェイ・リレーション）
type OSMFeature struct {
	ID       int64             `json:"id"`
	Type     string            `json:"type"` // node / way / relation
	Tags     map[string]string `json:"tags"`
	Geometry orb.Geometry      `json:"-"`
}

// Tag タグの値を取得
func (f *OSMFeature) Tag(key string) (string, bool) {
	v, ok := f.Tags[key]
	return v, ok
}

// HasAnyKey いずれかのキーのタグを持つかチェック
func (f *OSMFeature) HasAnyKey(keys ...string) bool {
	for _, k := range keys {
		if _, ok := f.Tags[k]; ok {
			return true
		}
	}
	return false
}

// MatchesAny タグがキー → 値の候補のいずれかに一致するかチェック
func (f *OSMFeature) MatchesAny(tags map[string][]string) bool {
	for key, values := range tags {
		v, ok := f.Tags[key]
		if !ok {
			continue
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
	}
	return false
}

// Population populationタグを数値として返す
// 数値として解釈できない値（NaN・Infを含む）は0として扱う
func (f *OSMFeature) Population() float64 {
	raw, ok := f.Tags[PopulationKey]
	if !ok {
		return 0
	}
	// "12 345" や "12,345" のような桁区切りを許容する
	raw = strings.NewReplacer(" ", "", ",", "", "_", "").Replace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
