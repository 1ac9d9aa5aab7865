package di

import (
	"context"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"company_backend/internal/platform/http/handler"
)

// NewHealthChecks は /healthz で確認する依存先を返します。rdb が nil の場合Redisは確認しません。
func NewHealthChecks(db *gorm.DB, rdb *redisv9.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
