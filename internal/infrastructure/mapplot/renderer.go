package mapplot

import (
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// Renderer はパイプラインの各段階の図を出力ディレクトリに書き出す
type Renderer struct {
	outputDir string
}

// NewRenderer は新しいRendererを生成する
func NewRenderer(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

// HexGrid は "<City>_grid_<stage>.png" にグリッドを描画する
func (r *Renderer) HexGrid(table *model.FeatureTable, boundary orb.MultiPolygon, stage string) error {
	title := fmt.Sprintf("%s H3 grid (%s, %d cells)", table.City, stage, table.Len())
	return PlotHexGrid(table, boundary, title, r.path(fmt.Sprintf("%s_grid_%s.png", table.City, stage)))
}

// FeatureDistribution は "<City>_<column>.png" に1カラムの分布を描画する
func (r *Renderer) FeatureDistribution(table *model.FeatureTable, column string) error {
	return PlotFeatureDistribution(table, column, r.path(fmt.Sprintf("%s_%s.png", table.City, column)))
}

// Comparison は実測値と予測値の比較図をPNGとHTMLの両方で出力する
func (r *Renderer) Comparison(table *model.FeatureTable, actualColumn, predictedColumn string) error {
	base := fmt.Sprintf("%s_comparison", table.City)
	if err := PlotComparisonMap(table, actualColumn, predictedColumn, r.path(base+".png")); err != nil {
		return err
	}
	return RenderComparisonHTML(table, actualColumn, predictedColumn, r.path(base+".html"))
}

func (r *Renderer) path(name string) string {
	return filepath.Join(r.outputDir, name)
}
