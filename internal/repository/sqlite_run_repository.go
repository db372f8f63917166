package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
	"github.com/KamilS31/LI-Project/internal/infrastructure/database"
)

// SQLiteRunRepository SQLiteによる実験ランの記録
type SQLiteRunRepository struct {
	client *database.SQLiteClient
	now    func() time.Time
}

func NewSQLiteRunRepository(client *database.SQLiteClient) repository.RunRepository {
	return &SQLiteRunRepository{
		client: client,
		now:    time.Now,
	}
}

func (r *SQLiteRunRepository) StartRun(ctx context.Context, name string) (*model.ExperimentRun, error) {
	run := model.NewExperimentRun(uuid.New().String(), name, r.now().UTC())
	_, err := r.client.DB.ExecContext(ctx,
		`INSERT INTO runs (id, name, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Name, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ランの作成に失敗: %w", err)
	}
	log.Printf("🧪 ラン開始: %s (%s)", run.Name, run.ID)
	return run, nil
}

func (r *SQLiteRunRepository) LogParams(ctx context.Context, runID string, params map[string]string) error {
	if err := r.ensureRun(ctx, runID); err != nil {
		return err
	}
	for k, v := range params {
		_, err := r.client.DB.ExecContext(ctx,
			`INSERT INTO run_params (run_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
			runID, k, v,
		)
		if err != nil {
			return fmt.Errorf("パラメータ %s の記録に失敗: %w", k, err)
		}
	}
	return nil
}

func (r *SQLiteRunRepository) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	if err := r.ensureRun(ctx, runID); err != nil {
		return err
	}
	for k, v := range metrics {
		_, err := r.client.DB.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
			runID, k, v,
		)
		if err != nil {
			return fmt.Errorf("メトリクス %s の記録に失敗: %w", k, err)
		}
	}
	return nil
}

func (r *SQLiteRunRepository) EndRun(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := r.client.DB.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), r.now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("ランの終了に失敗: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
	}
	log.Printf("🏁 ラン終了: %s (%s)", runID, status)
	return nil
}

func (r *SQLiteRunRepository) GetRun(ctx context.Context, runID string) (*model.ExperimentRun, error) {
	var (
		run     model.ExperimentRun
		status  string
		endedAt sql.NullTime
	)
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT id, name, status, started_at, ended_at FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Name, &status, &run.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("ランの取得に失敗: %w", err)
	}
	run.Status = model.RunStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}

	run.Params = make(map[string]string)
	paramRows, err := r.client.DB.QueryContext(ctx, `SELECT key, value FROM run_params WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("パラメータの取得に失敗: %w", err)
	}
	for paramRows.Next() {
		var k, v string
		if err := paramRows.Scan(&k, &v); err != nil {
			paramRows.Close()
			return nil, fmt.Errorf("パラメータのスキャンに失敗: %w", err)
		}
		run.Params[k] = v
	}
	paramRows.Close()

	run.Metrics = make(map[string]float64)
	metricRows, err := r.client.DB.QueryContext(ctx, `SELECT key, value FROM run_metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("メトリクスの取得に失敗: %w", err)
	}
	defer metricRows.Close()
	for metricRows.Next() {
		var k string
		var v float64
		if err := metricRows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("メトリクスのスキャンに失敗: %w", err)
		}
		run.Metrics[k] = v
	}
	return &run, metricRows.Err()
}

func (r *SQLiteRunRepository) ensureRun(ctx context.Context, runID string) error {
	var exists bool
	if err := r.client.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = ?)`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("ランの確認に失敗: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
	}
	return nil
}
