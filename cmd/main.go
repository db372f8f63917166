package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/KamilS31/LI-Project/internal/config"
	"github.com/KamilS31/LI-Project/internal/domain/repository"
	"github.com/KamilS31/LI-Project/internal/domain/service"
	"github.com/KamilS31/LI-Project/internal/infrastructure/database"
	"github.com/KamilS31/LI-Project/internal/infrastructure/firestore"
	"github.com/KamilS31/LI-Project/internal/infrastructure/geocoding"
	"github.com/KamilS31/LI-Project/internal/infrastructure/h3grid"
	"github.com/KamilS31/LI-Project/internal/infrastructure/mapplot"
	"github.com/KamilS31/LI-Project/internal/infrastructure/osm"
	repoImpl "github.com/KamilS31/LI-Project/internal/repository"
	"github.com/KamilS31/LI-Project/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("❌ パイプライン失敗: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// 外部サービス
	nominatim := geocoding.NewNominatimClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.HTTPTimeout)
	overpass := osm.NewOverpassClient(cfg.OverpassURL, cfg.NominatimUserAgent, 0)

	// チェックポイントと入力ファイル
	checkpoints := repoImpl.NewCSVFeatureTableRepository(cfg.CheckpointDir())
	bikePaths := repoImpl.NewBikePathFileRepository(cfg.DataDir)

	exports, closeExports, err := newExportRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeExports()

	runs, closeRuns, err := newRunRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRuns()

	var renderer usecase.MapRenderer
	if !cfg.SkipPlots {
		renderer = mapplot.NewRenderer(cfg.OutputDir)
	}

	gridService := service.NewHexGridService(h3grid.NewH3Indexer(), nominatim)
	aggregationService := service.NewFeatureAggregationService(overpass, nominatim, bikePaths, checkpoints)

	trainingConfig := usecase.DefaultTrainingConfig()
	trainingConfig.MaxWorkers = cfg.GridSearchWorkers

	pipeline := usecase.NewPipelineUseCase(
		usecase.NewPreprocessUseCase(gridService, aggregationService, checkpoints, renderer, cfg.Resolution, exports...),
		usecase.NewTrainingUseCase(trainingConfig),
		usecase.NewPredictionUseCase(checkpoints, renderer, cfg.OutputDir),
		runs,
	)

	train, target := config.Cities()
	_, err = pipeline.Run(ctx, usecase.PipelineConfig{
		RunName:    fmt.Sprintf("%s→%s", train.Name, target.Name),
		TrainCity:  train,
		TargetCity: target,
		Params: map[string]string{
			"h3_resolution": strconv.Itoa(cfg.Resolution),
			"test_size":     strconv.FormatFloat(trainingConfig.TestSize, 'g', -1, 64),
			"seed":          strconv.FormatUint(trainingConfig.Seed, 10),
			"cv_folds":      strconv.Itoa(trainingConfig.Folds),
			"param_grid":    fmt.Sprint(trainingConfig.ParamGrid),
		},
	})
	return err
}

// newExportRepositories はEXPORT_POSTGRES / EXPORT_SUPABASE に応じてエクスポート先を作る
func newExportRepositories(ctx context.Context, cfg *config.Config) ([]repository.FeatureTableRepository, func(), error) {
	var exports []repository.FeatureTableRepository
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.ExportPostgres {
		pg, err := database.NewPostgreSQLClient(ctx, database.PostgresConfig{
			DatabaseURL:      cfg.DatabaseURL,
			SupabaseURL:      cfg.SupabaseURL,
			SupabasePassword: cfg.SupabaseDBPassword,
		})
		if err != nil {
			return nil, closeAll, fmt.Errorf("PostgreSQLクライアント初期化失敗: %w", err)
		}
		closers = append(closers, func() { pg.Close() })
		exports = append(exports, repoImpl.NewPostgresFeatureTableRepository(pg))
	}

	if cfg.ExportSupabase {
		sb, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("Supabaseクライアント初期化失敗: %w", err)
		}
		if err := sb.HealthCheck(); err != nil {
			log.Printf("⚠️  Supabaseヘルスチェック失敗: %v", err)
		}
		exports = append(exports, repoImpl.NewSupabaseFeatureTableRepository(sb))
	}
	return exports, closeAll, nil
}

// newRunRepository はFIRESTORE_PROJECT_IDがあればFirestore、なければSQLiteに実験ランを記録する
func newRunRepository(ctx context.Context, cfg *config.Config) (repository.RunRepository, func(), error) {
	if cfg.UseFirestore() {
		fs, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentials)
		if err != nil {
			return nil, func() {}, fmt.Errorf("Firestoreクライアント初期化失敗: %w", err)
		}
		return repoImpl.NewFirestoreRunRepository(fs.GetClient()), func() { fs.Close() }, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, func() {}, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
	}
	db, err := database.NewSQLiteClient(cfg.RunsDB())
	if err != nil {
		return nil, func() {}, fmt.Errorf("SQLiteクライアント初期化失敗: %w", err)
	}
	log.Printf("🗄️  実験ランの記録先: %s", cfg.RunsDB())
	return repoImpl.NewSQLiteRunRepository(db), func() { db.Close() }, nil
}
