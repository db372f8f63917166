package mapplot

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// viridis 10段階（PNGのカラーマップとHTMLのvisualMapで共通）
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderComparisonHTML はセル中心の散布図で実測値と予測値を並べたHTMLを出力する
func RenderComparisonHTML(table *model.FeatureTable, actualColumn, predictedColumn, path string) error {
	if table.Len() == 0 {
		return fmt.Errorf("描画するセルがありません: %s", table.City)
	}
	actual, err := table.Column(actualColumn)
	if err != nil {
		return err
	}
	predicted, err := table.Column(predictedColumn)
	if err != nil {
		return err
	}

	all := append(append([]float64{}, actual...), predicted...)
	lo, hi := 0.0, 1.0
	if len(all) > 0 {
		lo, hi = floats.Min(all), floats.Max(all)
	}
	if hi <= lo {
		hi = lo + 1
	}

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("%s: %s vs %s", table.City, actualColumn, predictedColumn))
	page.AddCharts(
		cellScatter(table, actual, actualColumn, lo, hi),
		cellScatter(table, predicted, predictedColumn, lo, hi),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("HTMLファイルの作成に失敗: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("HTMLの描画に失敗: %w", err)
	}
	log.Printf("🌐 比較マップ(HTML)を保存: %s", path)
	return nil
}

func cellScatter(table *model.FeatureTable, values []float64, column string, lo, hi float64) *charts.Scatter {
	data := make([]opts.ScatterData, 0, table.Len())
	bound := table.Cells[0].Bound()
	for i, c := range table.Cells {
		center := c.Centroid()
		bound = bound.Union(c.Bound())
		data = append(data, opts.ScatterData{
			Name:  c.H3Index,
			Value: []interface{}{center.Lon(), center.Lat(), values[i]},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: table.City, Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: column, Subtitle: fmt.Sprintf("%s cells=%d", table.City, table.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: bound.Min.Lon(), Max: bound.Max.Lon(), Name: "lon", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: bound.Min.Lat(), Max: bound.Max.Lat(), Name: "lat", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(column, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}
