// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	houjinadapters "company_backend/internal/feature/houjinimport/adapters"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultConnectTimeout = 60 * time.Second
)

// Config はデータベース接続の設定です。
type Config struct {
	Driver         string // "postgres" または "sqlite"
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	SQLitePath     string        // Driver が sqlite の場合のファイルパス。":memory:" も可
	ConnectTimeout time.Duration // 接続リトライを打ち切るまでの時間
	RunMigrations  bool
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	cfg := Config{
		Driver:         os.Getenv("DB_DRIVER"),
		Host:           os.Getenv("DB_HOST"),
		Port:           os.Getenv("DB_PORT"),
		User:           os.Getenv("DB_USER"),
		Password:       os.Getenv("DB_PASSWORD"),
		Name:           os.Getenv("DB_NAME"),
		SSLMode:        os.Getenv("DB_SSLMODE"),
		SQLitePath:     os.Getenv("DB_SQLITE_PATH"),
		ConnectTimeout: defaultConnectTimeout,
		RunMigrations:  os.Getenv("RUN_MIGRATIONS") == "true",
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.Port == "" {
		cfg.Port = "5432"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "company.db"
	}
	return cfg
}

// BuildDSN は設定からドライバごとのDSN文字列を生成します。
func BuildDSN(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		// 取り込みは並行に書き込むため、ロック待ちでエラーにしない
		return cfg.SQLitePath + "?_busy_timeout=5000"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=Asia/Tokyo",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
}

// Opener はDSNからDB接続を開く関数です。
type Opener func(dsn string) (*gorm.DB, error)

// OpenerFor はドライバに対応するOpenerを返します。
func OpenerFor(driver string) (Opener, error) {
	switch driver {
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), &gorm.Config{})
		}, nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) {
			return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// ConnectWithRetry は timeout に達するまで指数バックオフで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	var db *gorm.DB
	err := backoff.RetryNotify(func() error {
		var err error
		db, err = open(dsn)
		return err
	}, b, func(err error, next time.Duration) {
		slog.Warn("DB connect failed, retrying", "error", err, "next", next)
	})
	if err != nil {
		return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
	}
	return db, nil
}

// OpenDB は設定に従ってDBへ接続し、必要であればマイグレーションを実行します。
func OpenDB(cfg Config) (*gorm.DB, error) {
	open, err := OpenerFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, open)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLiteは書き込みが直列化されるため接続を1本にする
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}

// Migrate は企業ディレクトリのテーブルを作成・更新します。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&houjinadapters.CompanyModel{},
		&houjinadapters.ZenkokuHoujinModel{},
	)
}
