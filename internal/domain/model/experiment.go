package model

import "time"

// RunStatus 実験ランの状態
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// EvaluationMetrics 回帰モデルの評価指標
type EvaluationMetrics struct {
	MAE  float64 `json:"mae" firestore:"mae"`
	MSE  float64 `json:"mse" firestore:"mse"`
	RMSE float64 `json:"rmse" firestore:"rmse"`
	R2   float64 `json:"r2" firestore:"r2"`
}

// AsMap 実験トラッカーに記録する形式へ変換
func (m EvaluationMetrics) AsMap() map[string]float64 {
	return map[string]float64{
		"mae":  m.MAE,
		"mse":  m.MSE,
		"rmse": m.RMSE,
		"r2":   m.R2,
	}
}

// ExperimentRun 1回のパイプライン実行の記録
type ExperimentRun struct {
	ID        string             `json:"id" firestore:"id"`
	Name      string             `json:"name" firestore:"name"`
	Status    RunStatus          `json:"status" firestore:"status"`
	StartedAt time.Time          `json:"started_at" firestore:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty" firestore:"ended_at,omitempty"`
	Params    map[string]string  `json:"params" firestore:"params"`
	Metrics   map[string]float64 `json:"metrics" firestore:"metrics"`
}

// NewExperimentRun 実行中状態の新しいランを作成
func NewExperimentRun(id, name string, startedAt time.Time) *ExperimentRun {
	return &ExperimentRun{
		ID:        id,
		Name:      name,
		Status:    RunStatusRunning,
		StartedAt: startedAt,
		Params:    make(map[string]string),
		Metrics:   make(map[string]float64),
	}
}

// IsFinished ランが終了しているか
func (r *ExperimentRun) IsFinished() bool {
	return r.Status == RunStatusFinished || r.Status == RunStatusFailed
}
