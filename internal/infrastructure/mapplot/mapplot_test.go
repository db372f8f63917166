package mapplot

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

func newPlotTable(t *testing.T) *model.FeatureTable {
	t.Helper()
	table := model.NewFeatureTable("Testdam")
	for i := 0; i < 3; i++ {
		x := 4.88 + float64(i)*0.01
		ring := orb.Ring{{x, 52.36}, {x + 0.01, 52.36}, {x + 0.01, 52.37}, {x, 52.37}, {x, 52.36}}
		table.Cells = append(table.Cells, model.NewHexCell(string(rune('a'+i)), orb.Polygon{ring}))
	}
	table.AddColumn(model.ColumnBikePathLength)
	table.AddColumn(model.ColumnPredictedBikePathLength)
	for i := range table.Cells {
		table.Set(i, model.ColumnBikePathLength, float64(i*100))
		table.Set(i, model.ColumnPredictedBikePathLength, float64(i*90+5))
	}
	return table
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotHexGrid(t *testing.T) {
	table := newPlotTable(t)
	boundary := orb.MultiPolygon{orb.Bound{Min: orb.Point{4.885, 52.355}, Max: orb.Point{4.905, 52.375}}.ToPolygon()}
	path := filepath.Join(t.TempDir(), "grid", "hex_grid.png")

	require.NoError(t, PlotHexGrid(table, boundary, "Testdam grid", path))
	assertNonEmptyFile(t, path)
}

func TestPlotFeatureDistribution(t *testing.T) {
	t.Run("値の分布をPNGに出力できる", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bike.png")
		require.NoError(t, PlotFeatureDistribution(newPlotTable(t), model.ColumnBikePathLength, path))
		assertNonEmptyFile(t, path)
	})

	t.Run("全て同じ値でも描画できる", func(t *testing.T) {
		table := newPlotTable(t)
		for i := range table.Cells {
			table.Set(i, model.ColumnBikePathLength, 7)
		}
		path := filepath.Join(t.TempDir(), "flat.png")
		require.NoError(t, PlotFeatureDistribution(table, model.ColumnBikePathLength, path))
		assertNonEmptyFile(t, path)
	})

	t.Run("存在しないカラムはエラー", func(t *testing.T) {
		err := PlotFeatureDistribution(newPlotTable(t), "unknown", filepath.Join(t.TempDir(), "x.png"))
		assert.Error(t, err)
	})
}

func TestPlotComparisonMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comparison.png")
	require.NoError(t, PlotComparisonMap(newPlotTable(t), model.ColumnBikePathLength, model.ColumnPredictedBikePathLength, path))
	assertNonEmptyFile(t, path)
}

func TestRenderComparisonHTML(t *testing.T) {
	t.Run("2つの散布図を含むHTMLを出力する", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "comparison.html")
		require.NoError(t, RenderComparisonHTML(newPlotTable(t), model.ColumnBikePathLength, model.ColumnPredictedBikePathLength, path))

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		html := string(body)
		assert.Contains(t, html, "<html")
		assert.True(t, strings.Contains(html, model.ColumnPredictedBikePathLength))
	})

	t.Run("空のテーブルはエラー", func(t *testing.T) {
		err := RenderComparisonHTML(model.NewFeatureTable("Empty"), model.ColumnBikePathLength, model.ColumnPredictedBikePathLength, filepath.Join(t.TempDir(), "x.html"))
		assert.Error(t, err)
	})
}

func TestNewColorMap(t *testing.T) {
	cmap, err := newColorMap([]float64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, cmap.Min())
	assert.Equal(t, 3.0, cmap.Max())

	flat, err := newColorMap([]float64{5, 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, flat.Min())
	assert.Equal(t, 6.0, flat.Max())

	t.Run("両端はHTMLマップと同じviridisの色", func(t *testing.T) {
		controls, err := hexColors(viridis)
		require.NoError(t, err)

		for _, tt := range []struct {
			v    float64
			want color.Color
		}{
			{1, controls[0]},
			{3, controls[len(controls)-1]},
		} {
			got, err := cmap.At(tt.v)
			require.NoError(t, err)
			assertColorNear(t, tt.want, got)
		}
	})
}

func TestHexColors(t *testing.T) {
	colors, err := hexColors([]string{"#440154", "#fde725"})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 255}, colors[0])
	assert.Equal(t, color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 255}, colors[1])

	_, err = hexColors([]string{"#zzzzzz"})
	assert.Error(t, err)
	_, err = hexColors([]string{"#fff"})
	assert.Error(t, err)
}

// assertColorNear はLab色空間経由の丸め誤差を許容して色を比較する
func assertColorNear(t *testing.T, want, got color.Color) {
	t.Helper()
	wr, wg, wb, _ := want.RGBA()
	gr, gg, gb, _ := got.RGBA()
	const tolerance = 2 * 257 // 8bitで2段階
	assert.InDelta(t, float64(wr), float64(gr), tolerance)
	assert.InDelta(t, float64(wg), float64(gg), tolerance)
	assert.InDelta(t, float64(wb), float64(gb), tolerance)
}

func TestRenderer(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)
	table := newPlotTable(t)

	require.NoError(t, r.HexGrid(table, nil, "full"))
	require.NoError(t, r.FeatureDistribution(table, model.ColumnBikePathLength))
	require.NoError(t, r.Comparison(table, model.ColumnBikePathLength, model.ColumnPredictedBikePathLength))

	for _, name := range []string{
		"Testdam_grid_full.png",
		"Testdam_bike_path_length.png",
		"Testdam_comparison.png",
		"Testdam_comparison.html",
	} {
		assertNonEmptyFile(t, filepath.Join(dir, name))
	}
}
