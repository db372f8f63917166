package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMainRoad(t *testing.T) {
	assert.True(t, IsMainRoad("primary"))
	assert.True(t, IsMainRoad("motorway_link"))
	assert.True(t, IsMainRoad("secondary;residential"))
	assert.False(t, IsMainRoad("residential;primary"))
	assert.False(t, IsMainRoad("footway"))
	assert.False(t, IsMainRoad(""))
}

func TestOSMFeature_Tags(t *testing.T) {
	park := &OSMFeature{ID: 1, Type: "way", Tags: map[string]string{"leisure": "park", "name": "Vondelpark"}}
	garden := &OSMFeature{ID: 2, Type: "way", Tags: map[string]string{"leisure": "garden"}}
	shop := &OSMFeature{ID: 3, Type: "node", Tags: map[string]string{"shop": "bakery"}}

	assert.True(t, park.MatchesAny(GreenSpaceTags))
	assert.False(t, garden.MatchesAny(GreenSpaceTags))
	assert.True(t, shop.HasAnyKey(ServiceAmenityKeys...))
	assert.False(t, park.HasAnyKey(ServiceAmenityKeys...))

	name, ok := park.Tag("name")
	assert.True(t, ok)
	assert.Equal(t, "Vondelpark", name)
}

func TestOSMFeature_Population(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"921402", 921402},
		{"12 345", 12345},
		{"12,345", 12345},
		{"1_000", 1000},
		{"about 500", 0},
		{"-10", 0},
		{"", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"Infinity", 0},
		{"-Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			f := &OSMFeature{Tags: map[string]string{PopulationKey: tt.raw}}
			assert.Equal(t, tt.want, f.Population())
		})
	}

	t.Run("タグなし", func(t *testing.T) {
		assert.Zero(t, (&OSMFeature{}).Population())
	})
}

func TestEvaluationMetrics_AsMap(t *testing.T) {
	m := EvaluationMetrics{MAE: 1, MSE: 2, RMSE: 3, R2: 0.5}
	assert.Equal(t, map[string]float64{"mae": 1, "mse": 2, "rmse": 3, "r2": 0.5}, m.AsMap())
}
