package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
)

// runsCollection 実験ランを保存するコレクション
const runsCollection = "experimentRuns"

// FirestoreRunRepository Firestoreを使用した実験ランの記録
type FirestoreRunRepository struct {
	client *firestore.Client
}

// NewFirestoreRunRepository 新しいFirestoreRunRepositoryインスタンスを作成
func NewFirestoreRunRepository(client *firestore.Client) repository.RunRepository {
	return &FirestoreRunRepository{
		client: client,
	}
}

// StartRun は実行中状態のランを作成する
func (r *FirestoreRunRepository) StartRun(ctx context.Context, name string) (*model.ExperimentRun, error) {
	run := model.NewExperimentRun(uuid.New().String(), name, time.Now().UTC())
	if _, err := r.client.Collection(runsCollection).Doc(run.ID).Set(ctx, run); err != nil {
		log.Printf("❌ Failed to create run %s: %v", run.ID, err)
		return nil, fmt.Errorf("ランの作成に失敗しました: %w", err)
	}
	log.Printf("✅ Run started: %s (%s)", run.Name, run.ID)
	return run, nil
}

// LogParams はパラメータをマージして保存する
func (r *FirestoreRunRepository) LogParams(ctx context.Context, runID string, params map[string]string) error {
	updates := make([]firestore.Update, 0, len(params))
	for k, v := range params {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"params", k}, Value: v})
	}
	return r.update(ctx, runID, updates)
}

// LogMetrics はメトリクスをマージして保存する
func (r *FirestoreRunRepository) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	updates := make([]firestore.Update, 0, len(metrics))
	for k, v := range metrics {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"metrics", k}, Value: v})
	}
	return r.update(ctx, runID, updates)
}

// EndRun は状態と終了時刻を記録する
func (r *FirestoreRunRepository) EndRun(ctx context.Context, runID string, runStatus model.RunStatus) error {
	return r.update(ctx, runID, []firestore.Update{
		{Path: "status", Value: string(runStatus)},
		{Path: "ended_at", Value: time.Now().UTC()},
	})
}

// GetRun は指定されたIDのランを取得する
func (r *FirestoreRunRepository) GetRun(ctx context.Context, runID string) (*model.ExperimentRun, error) {
	doc, err := r.client.Collection(runsCollection).Doc(runID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("ランの取得に失敗しました: %w", err)
	}

	var run model.ExperimentRun
	if err := doc.DataTo(&run); err != nil {
		return nil, fmt.Errorf("データの変換に失敗しました: %w", err)
	}
	return &run, nil
}

func (r *FirestoreRunRepository) update(ctx context.Context, runID string, updates []firestore.Update) error {
	if len(updates) == 0 {
		return nil
	}
	_, err := r.client.Collection(runsCollection).Doc(runID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
		}
		return fmt.Errorf("ランの更新に失敗しました: %w", err)
	}
	return nil
}
