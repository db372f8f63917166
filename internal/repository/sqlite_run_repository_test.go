package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamilS31/LI-Project/internal/domain/model"
	"github.com/KamilS31/LI-Project/internal/infrastructure/database"
)

func newTestRunRepository(t *testing.T) *SQLiteRunRepository {
	t.Helper()
	client, err := database.NewSQLiteClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewSQLiteRunRepository(client).(*SQLiteRunRepository)
}

func TestSQLiteRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRunRepository(t)

	run, err := repo.StartRun(ctx, "amsterdam-to-krakow")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, repo.LogParams(ctx, run.ID, map[string]string{"h3_resolution": "7", "best_max_depth": "10"}))
	require.NoError(t, repo.LogMetrics(ctx, run.ID, map[string]float64{"mae": 1.5, "r2": 0.8}))
	// 同じキーは上書きされる
	require.NoError(t, repo.LogMetrics(ctx, run.ID, map[string]float64{"mae": 1.25}))

	t.Run("実行中のランを取得できる", func(t *testing.T) {
		got, err := repo.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "amsterdam-to-krakow", got.Name)
		assert.False(t, got.IsFinished())
		assert.Nil(t, got.EndedAt)
		assert.Equal(t, map[string]string{"h3_resolution": "7", "best_max_depth": "10"}, got.Params)
		assert.Equal(t, map[string]float64{"mae": 1.25, "r2": 0.8}, got.Metrics)
	})

	t.Run("終了したランには終了時刻がある", func(t *testing.T) {
		require.NoError(t, repo.EndRun(ctx, run.ID, model.RunStatusFinished))
		got, err := repo.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFinished, got.Status)
		require.NotNil(t, got.EndedAt)
		assert.False(t, got.EndedAt.Before(got.StartedAt))
	})

	t.Run("存在しないラン", func(t *testing.T) {
		_, err := repo.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrRunNotFound)
		assert.ErrorIs(t, repo.LogParams(ctx, "missing", map[string]string{"a": "b"}), model.ErrRunNotFound)
		assert.ErrorIs(t, repo.EndRun(ctx, "missing", model.RunStatusFailed), model.ErrRunNotFound)
	})
}

func TestSQLiteClient_MigrateVersion(t *testing.T) {
	client, err := database.NewSQLiteClient(":memory:")
	require.NoError(t, err)
	defer client.Close()

	version, dirty, err := client.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// 2回目の適用は何もしない
	assert.NoError(t, client.MigrateUp())
}
