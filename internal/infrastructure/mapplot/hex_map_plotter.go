package mapplot

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// 出力画像のサイズ
const (
	mapWidth  = 8 * vg.Inch
	mapHeight = 8 * vg.Inch
)

var (
	boundaryColor = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	cellEdgeColor = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// PlotHexGrid はグリッドの輪郭を都市境界と重ねて描画する（切り取り前後の確認用）
func PlotHexGrid(table *model.FeatureTable, boundary orb.MultiPolygon, title, path string) error {
	p := newMapPlot(title)

	for _, c := range table.Cells {
		poly, err := polygonPlotter(c.Geometry)
		if err != nil {
			return err
		}
		poly.Color = nil
		poly.LineStyle.Color = cellEdgeColor
		poly.LineStyle.Width = vg.Points(0.3)
		p.Add(poly)
	}
	for _, b := range boundary {
		poly, err := polygonPlotter(b)
		if err != nil {
			return err
		}
		poly.Color = nil
		poly.LineStyle.Color = boundaryColor
		poly.LineStyle.Width = vg.Points(1.5)
		p.Add(poly)
	}

	return savePlot(p, path)
}

// PlotFeatureDistribution は1カラムの値でセルを塗り分けたコロプレス図を描画する
func PlotFeatureDistribution(table *model.FeatureTable, column, path string) error {
	values, err := table.Column(column)
	if err != nil {
		return err
	}
	cmap, err := newColorMap(values)
	if err != nil {
		return err
	}
	p, err := choropleth(table, values, cmap, column)
	if err != nil {
		return err
	}
	return savePlot(p, path)
}

// PlotComparisonMap は実測値と予測値のコロプレス図を同じ色スケールで左右に並べて描画する
func PlotComparisonMap(table *model.FeatureTable, actualColumn, predictedColumn, path string) error {
	actual, err := table.Column(actualColumn)
	if err != nil {
		return err
	}
	predicted, err := table.Column(predictedColumn)
	if err != nil {
		return err
	}

	cmap, err := newColorMap(append(append([]float64{}, actual...), predicted...))
	if err != nil {
		return err
	}
	left, err := choropleth(table, actual, cmap, fmt.Sprintf("%s: %s", table.City, actualColumn))
	if err != nil {
		return err
	}
	right, err := choropleth(table, predicted, cmap, fmt.Sprintf("%s: %s", table.City, predictedColumn))
	if err != nil {
		return err
	}

	const rows, cols = 1, 2
	plots := [][]*plot.Plot{{left, right}}
	img := vgimg.New(2*mapWidth, mapHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 5,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("画像ファイルの作成に失敗: %w", err)
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return fmt.Errorf("PNGの書き込みに失敗: %w", err)
	}
	log.Printf("🖼️  比較マップを保存: %s", path)
	return nil
}

// choropleth は値に応じてセルを塗り分けたプロットを作る
func choropleth(table *model.FeatureTable, values []float64, cmap palette.ColorMap, title string) (*plot.Plot, error) {
	p := newMapPlot(title)
	for i, c := range table.Cells {
		poly, err := polygonPlotter(c.Geometry)
		if err != nil {
			return nil, err
		}
		fill, err := cmap.At(clamp(values[i], cmap.Min(), cmap.Max()))
		if err != nil {
			return nil, fmt.Errorf("セル %s の色の取得に失敗: %w", c.H3Index, err)
		}
		poly.Color = fill
		poly.LineStyle.Width = 0
		p.Add(poly)
	}
	p.Title.Text = fmt.Sprintf("%s (%.3g〜%.3g)", title, cmap.Min(), cmap.Max())
	return p, nil
}

// newColorMap は値の範囲に合わせたviridisのカラーマップを作る（全て同じ値なら幅1の範囲にする）
// HTMLマップと同じ制御色を明度に沿って補間する
func newColorMap(values []float64) (palette.ColorMap, error) {
	controls, err := hexColors(viridis)
	if err != nil {
		return nil, err
	}
	cmap, err := moreland.NewLuminance(controls)
	if err != nil {
		return nil, fmt.Errorf("カラーマップの作成に失敗: %w", err)
	}

	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = floats.Min(values), floats.Max(values)
	}
	if hi <= lo || math.IsNaN(hi-lo) {
		hi = lo + 1
	}
	cmap.SetMin(lo)
	cmap.SetMax(hi)
	return cmap, nil
}

// hexColors は "#rrggbb" 形式の色をcolor.Colorに変換する
func hexColors(hexes []string) ([]color.Color, error) {
	colors := make([]color.Color, len(hexes))
	for i, h := range hexes {
		if len(h) != 7 || !strings.HasPrefix(h, "#") {
			return nil, fmt.Errorf("色 %q は#rrggbb形式ではありません", h)
		}
		v, err := strconv.ParseUint(h[1:], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("色 %q の解析に失敗: %w", h, err)
		}
		colors[i] = color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	}
	return colors, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func newMapPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "経度"
	p.Y.Label.Text = "緯度"
	return p
}

// polygonPlotter はorb.Polygonの各リングをplotterのポリゴンに変換する
func polygonPlotter(polygon orb.Polygon) (*plotter.Polygon, error) {
	rings := make([]plotter.XYer, 0, len(polygon))
	for _, ring := range polygon {
		xys := make(plotter.XYs, len(ring))
		for i, pt := range ring {
			xys[i] = plotter.XY{X: pt.Lon(), Y: pt.Lat()}
		}
		rings = append(rings, xys)
	}
	poly, err := plotter.NewPolygon(rings...)
	if err != nil {
		return nil, fmt.Errorf("ポリゴンの作成に失敗: %w", err)
	}
	return poly, nil
}

func savePlot(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}
	if err := p.Save(mapWidth, mapHeight, path); err != nil {
		return fmt.Errorf("画像の保存に失敗: %w", err)
	}
	log.Printf("🖼️  マップを保存: %s", path)
	return nil
}
