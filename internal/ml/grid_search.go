package ml

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Params 1候補分のハイパーパラメータ
type Params map[string]int

// String "max_depth=10, n_estimators=100" の形式（キー順）
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(p[k])
	}
	return strings.Join(parts, ", ")
}

// ParamGrid パラメータ名 → 候補値
type ParamGrid map[string][]int

// Candidates キー名順の直積で全候補を列挙する（最後のキーが最も速く変わる）
func (g ParamGrid) Candidates() []Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := []Params{{}}
	for _, k := range keys {
		var next []Params
		for _, base := range candidates {
			for _, v := range g[k] {
				p := make(Params, len(base)+1)
				for bk, bv := range base {
					p[bk] = bv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		candidates = next
	}
	return candidates
}

// DefaultParamGrid 木の本数と深さの探索範囲
func DefaultParamGrid() ParamGrid {
	return ParamGrid{
		"n_estimators": {100, 200},
		"max_depth":    {10, 20},
	}
}

// EstimatorFactory パラメータから未学習のモデルを作る
type EstimatorFactory func(Params) Regressor

// RandomForestFactory n_estimators / max_depth からランダムフォレストを作る
func RandomForestFactory(seed uint64) EstimatorFactory {
	return func(p Params) Regressor {
		return NewRandomForestRegressor(p["n_estimators"], p["max_depth"], seed)
	}
}

// CVResult 1候補の交差検証結果
type CVResult struct {
	Params     Params
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Rank       int
	FitTime    time.Duration
	Err        error
}

// GridSearchCV 全候補をk分割交差検証で評価し、最良の候補を全学習データで再学習する
type GridSearchCV struct {
	Factory    EstimatorFactory
	ParamGrid  ParamGrid
	Folds      int
	Scoring    Scorer
	MaxWorkers int // 同時に評価する候補数（結果には影響しない）

	BestParams    Params
	BestScore     float64
	BestEstimator Regressor
	CVResults     []CVResult
}

// NewGridSearchCV 5分割・負のMAEで評価するグリッドサーチを作成
func NewGridSearchCV(factory EstimatorFactory, grid ParamGrid) *GridSearchCV {
	return &GridSearchCV{
		Factory:    factory,
		ParamGrid:  grid,
		Folds:      5,
		Scoring:    NegMeanAbsoluteError,
		MaxWorkers: 1,
	}
}

// Fit 交差検証で最良の候補を選び、全データで再学習する
func (g *GridSearchCV) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	folds, err := KFold(len(y), g.Folds)
	if err != nil {
		return err
	}
	candidates := g.ParamGrid.Candidates()
	if len(candidates) == 0 {
		return fmt.Errorf("パラメータ候補が存在しません")
	}
	scoring := g.Scoring
	if scoring == nil {
		scoring = NegMeanAbsoluteError
	}
	workers := g.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	log.Printf("🚀 グリッドサーチ開始: %d候補 × %d分割 (並列数 %d)", len(candidates), len(folds), workers)
	start := time.Now()

	// セマフォで同時に評価する候補数を制限
	semaphore := make(chan struct{}, workers)
	results := make([]CVResult, len(candidates))
	var wg sync.WaitGroup

	for i, params := range candidates {
		wg.Add(1)
		go func(index int, params Params) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[index] = g.evaluateCandidate(ctx, params, folds, X, y, scoring)
		}(i, params)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	best := -1
	for i, r := range results {
		if r.Err != nil {
			log.Printf("⚠️  候補 {%s} の評価エラー: %v", r.Params, r.Err)
			continue
		}
		log.Printf("📊 {%s}: mean=%.4f std=%.4f", r.Params, r.MeanScore, r.StdScore)
		if best < 0 || r.MeanScore > results[best].MeanScore {
			best = i
		}
	}
	if best < 0 {
		return fmt.Errorf("全ての候補の評価に失敗しました: %w", results[0].Err)
	}
	rankResults(results)
	g.CVResults = results

	estimator := g.Factory(results[best].Params)
	if err := estimator.Fit(X, y); err != nil {
		return fmt.Errorf("最良モデルの再学習に失敗: %w", err)
	}
	g.BestParams = results[best].Params
	g.BestScore = results[best].MeanScore
	g.BestEstimator = estimator

	log.Printf("🏆 最良パラメータ: {%s} (score=%.4f, %v)", g.BestParams, g.BestScore, time.Since(start).Round(time.Millisecond))
	return nil
}

// Predict 再学習済みの最良モデルで予測する
func (g *GridSearchCV) Predict(X [][]float64) ([]float64, error) {
	if g.BestEstimator == nil {
		return nil, ErrNotFitted
	}
	return g.BestEstimator.Predict(X)
}

func (g *GridSearchCV) evaluateCandidate(ctx context.Context, params Params, folds []Fold, X [][]float64, y []float64, scoring Scorer) CVResult {
	result := CVResult{Params: params}
	start := time.Now()
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		train := subset(X, y, fold.Train)
		test := subset(X, y, fold.Test)

		estimator := g.Factory(params)
		if err := estimator.Fit(train.X, train.Y); err != nil {
			result.Err = err
			return result
		}
		predictions, err := estimator.Predict(test.X)
		if err != nil {
			result.Err = err
			return result
		}
		result.FoldScores = append(result.FoldScores, scoring(test.Y, predictions))
	}
	result.MeanScore, result.StdScore = stat.PopMeanStdDev(result.FoldScores, nil)
	result.FitTime = time.Since(start)
	return result
}

// rankResults は平均スコアの降順で順位を付ける（同点は同順位、失敗した候補は最下位）
func rankResults(results []CVResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if (ra.Err == nil) != (rb.Err == nil) {
			return ra.Err == nil
		}
		return ra.MeanScore > rb.MeanScore
	})
	for pos, i := range order {
		rank := pos + 1
		if pos > 0 {
			prev := results[order[pos-1]]
			if prev.Err == nil && results[i].Err == nil && prev.MeanScore == results[i].MeanScore {
				rank = prev.Rank
			}
		}
		results[i].Rank = rank
	}
}
