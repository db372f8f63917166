package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteClient 実験ラン記録用のSQLiteクライアント
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLiteClient SQLiteファイルを開き、未適用のマイグレーションを実行する
// ":memory:" を指定するとインメモリDBになる（テスト用）
func NewSQLiteClient(path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	// インメモリDBは接続ごとに別のDBになるため接続を1本に固定する
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("PRAGMAの設定に失敗: %w", err)
	}

	client := &SQLiteClient{DB: db}
	if err := client.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

// MigrateUp 未適用のマイグレーションを全て適用する
func (c *SQLiteClient) MigrateUp() error {
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	// m.Close()は元の接続も閉じるため呼ばない

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return nil
}

// MigrateVersion 現在のマイグレーションバージョン（未適用なら0）
func (c *SQLiteClient) MigrateVersion() (uint, bool, error) {
	m, err := c.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (c *SQLiteClient) newMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}
	driver, err := sqlite.WithInstance(c.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqliteドライバの作成に失敗: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("migrateインスタンスの作成に失敗: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// Close データベース接続を閉じる
func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// migrateLogger migrate.Loggerをlogパッケージに流す
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("🗄️  [migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
