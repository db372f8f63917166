package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	// ErrColumnNotFound 指定カラムが特徴量テーブルに存在しない
	ErrColumnNotFound = errors.New("column not found")
	// ErrSchemaMismatch 2つのテーブルのカラム構成が一致しない
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrDuplicateIndex 同じH3インデックスの行が複数存在する
	ErrDuplicateIndex = errors.New("duplicate h3 index")
	// ErrInvalidGeometry セル境界が閉じたポリゴンではない
	ErrInvalidGeometry = errors.New("invalid cell geometry")
)

// FeatureTable 都市ごとの六角形セルと集計済み特徴量の表
// Columnsは識別子（h3_index, geometry）を含む出力順のカラム一覧
type FeatureTable struct {
	City    string     `json:"city"`
	Columns []string   `json:"columns"`
	Cells   []*HexCell `json:"cells"`
}

// NewFeatureTable 識別子カラムのみを持つ空のテーブルを作成
func NewFeatureTable(city string) *FeatureTable {
	return &FeatureTable{
		City:    city,
		Columns: []string{ColumnH3Index, ColumnGeometry},
	}
}

// Len セル数を返す
func (t *FeatureTable) Len() int {
	return len(t.Cells)
}

// HasColumn カラムが存在するかチェック
func (t *FeatureTable) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

// AddColumn カラムを追加し、全セルの値を0で初期化する
// 既存カラムの場合は値を0にリセットする
func (t *FeatureTable) AddColumn(column string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
	for _, c := range t.Cells {
		c.Features[column] = 0
	}
}

// EnsureColumn 既存の値を残したままカラムを登録する（値のないセルは0）
func (t *FeatureTable) EnsureColumn(column string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
	for _, c := range t.Cells {
		if _, ok := c.Features[column]; !ok {
			c.Features[column] = 0
		}
	}
}

// Set i番目のセルの値を設定
func (t *FeatureTable) Set(i int, column string, value float64) {
	t.Cells[i].Features[column] = value
}

// Get i番目のセルの値を取得
func (t *FeatureTable) Get(i int, column string) (float64, error) {
	if !t.HasColumn(column) {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return t.Cells[i].Features[column], nil
}

// Column 1カラム分の値を行順で返す
func (t *FeatureTable) Column(column string) ([]float64, error) {
	if !t.HasColumn(column) || column == ColumnH3Index || column == ColumnGeometry {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	values := make([]float64, len(t.Cells))
	for i, c := range t.Cells {
		values[i] = c.Features[column]
	}
	return values, nil
}

// Sum カラムの合計値
func (t *FeatureTable) Sum(column string) (float64, error) {
	values, err := t.Column(column)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum, nil
}

// FeatureColumns 識別子と除外指定以外の数値カラムを出力順で返す
func (t *FeatureTable) FeatureColumns(exclude ...string) []string {
	var columns []string
	for _, c := range t.Columns {
		if slices.Contains(IdentifierColumns, c) || slices.Contains(exclude, c) {
			continue
		}
		columns = append(columns, c)
	}
	return columns
}

// Matrix 指定カラムを行優先の行列として返す
func (t *FeatureTable) Matrix(columns []string) ([][]float64, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c)
		}
	}
	rows := make([][]float64, len(t.Cells))
	for i, cell := range t.Cells {
		row := make([]float64, len(columns))
		for j, c := range columns {
			row[j] = cell.Features[c]
		}
		rows[i] = row
	}
	return rows, nil
}

// UniqueIndexCount ユニークなH3インデックス数
func (t *FeatureTable) UniqueIndexCount() int {
	seen := make(map[string]struct{}, len(t.Cells))
	for _, c := range t.Cells {
		seen[c.H3Index] = struct{}{}
	}
	return len(seen)
}

// Indexes 全セルのH3インデックスを行順で返す
func (t *FeatureTable) Indexes() []string {
	indexes := make([]string, len(t.Cells))
	for i, c := range t.Cells {
		indexes[i] = c.H3Index
	}
	return indexes
}

// Filter 条件を満たすセルだけを持つ新しいテーブルを返す
// セルは共有せずコピーする
func (t *FeatureTable) Filter(keep func(*HexCell) bool) *FeatureTable {
	out := &FeatureTable{
		City:    t.City,
		Columns: slices.Clone(t.Columns),
	}
	for _, c := range t.Cells {
		if keep(c) {
			out.Cells = append(out.Cells, c.Clone())
		}
	}
	return out
}

// Clone テーブルのディープコピー
func (t *FeatureTable) Clone() *FeatureTable {
	return t.Filter(func(*HexCell) bool { return true })
}

// SortByIndex H3インデックス順に並べ替える
func (t *FeatureTable) SortByIndex() {
	sort.Slice(t.Cells, func(i, j int) bool {
		return t.Cells[i].H3Index < t.Cells[j].H3Index
	})
}

// Validate 1行1インデックスとジオメトリの妥当性を検証
func (t *FeatureTable) Validate() error {
	seen := make(map[string]struct{}, len(t.Cells))
	for _, c := range t.Cells {
		if _, dup := seen[c.H3Index]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateIndex, c.H3Index)
		}
		seen[c.H3Index] = struct{}{}
		if !c.isValidGeometry() {
			return fmt.Errorf("%w: %s", ErrInvalidGeometry, c.H3Index)
		}
	}
	return nil
}

// CheckSchema 学習時のカラム構成と一致するか検証
func (t *FeatureTable) CheckSchema(columns []string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return fmt.Errorf("%w: %s に %s がありません", ErrSchemaMismatch, t.City, c)
		}
	}
	return nil
}
