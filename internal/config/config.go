package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/KamilS31/LI-Project/internal/domain/model"
)

// Config パイプライン全体の設定（環境変数 / .env から読み込む）
type Config struct {
	DataDir    string `env:"DATA_DIR" envDefault:"."`
	OutputDir  string `env:"OUTPUT_DIR" envDefault:"output"`
	Resolution int    `env:"H3_RESOLUTION" envDefault:"7"`

	NominatimURL       string        `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`
	NominatimUserAgent string        `env:"NOMINATIM_USER_AGENT" envDefault:"li-project-bike-paths/1.0"`
	OverpassURL        string        `env:"OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	RunsDBPath           string `env:"RUNS_DB_PATH" envDefault:"runs.db"`
	FirestoreProjectID   string `env:"FIRESTORE_PROJECT_ID"`
	FirestoreCredentials string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY"`
	SupabaseDBPassword string `env:"SUPABASE_DB_PASSWORD"`
	DatabaseURL        string `env:"DATABASE_URL"`
	ExportPostgres     bool   `env:"EXPORT_POSTGRES" envDefault:"false"`
	ExportSupabase     bool   `env:"EXPORT_SUPABASE" envDefault:"false"`

	GridSearchWorkers int  `env:"GRID_SEARCH_WORKERS" envDefault:"1"`
	SkipPlots         bool `env:"SKIP_PLOTS" envDefault:"false"`
}

// Load は .env を読み込んだ後、環境変数から設定を作成する
// .env が見つからない場合は環境変数のみを使う
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Printf("⚠️  .envファイルが見つかりません。システムの環境変数を使用します")
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv 環境変数を構造体に読み込む
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	return nil
}

// Validate 設定値の整合性をチェック
func (c *Config) Validate() error {
	if err := model.ValidateResolution(c.Resolution); err != nil {
		return err
	}
	if c.GridSearchWorkers < 1 {
		return fmt.Errorf("GRID_SEARCH_WORKERSは1以上である必要があります: %d", c.GridSearchWorkers)
	}
	if c.ExportSupabase && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
		return fmt.Errorf("EXPORT_SUPABASEにはSUPABASE_URLとSUPABASE_ANON_KEYが必要です")
	}
	if c.ExportPostgres && c.DatabaseURL == "" && (c.SupabaseURL == "" || c.SupabaseDBPassword == "") {
		return fmt.Errorf("EXPORT_POSTGRESにはDATABASE_URL、またはSUPABASE_URLとSUPABASE_DB_PASSWORDが必要です")
	}
	return nil
}

// UseFirestore 実験ランをFirestoreに記録するか
func (c *Config) UseFirestore() bool {
	return c.FirestoreProjectID != ""
}

// CheckpointDir チェックポイントCSVの保存先
func (c *Config) CheckpointDir() string {
	return c.DataDir
}

// RunsDB 実験ランを記録するSQLiteファイルのパス（相対パスはDATA_DIR基準）
func (c *Config) RunsDB() string {
	if c.RunsDBPath == ":memory:" || filepath.IsAbs(c.RunsDBPath) {
		return c.RunsDBPath
	}
	return filepath.Join(c.DataDir, c.RunsDBPath)
}
