// Package zenkoku は全国法人情報APIのクライアントを提供します。
package zenkoku

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config は全国法人情報APIクライアントの設定です。
type Config struct {
	Endpoint   string        // POST先のURL
	SecretKey  string        // リクエストボディに含める認証キー
	Timeout    time.Duration // リクエスト全体のタイムアウト。0の場合は無制限
	RatePerSec int           // 1秒あたりの最大リクエスト数。0の場合は無制限
}

// LoadConfig は環境変数から全国法人情報APIの設定を読み込みます。
func LoadConfig() Config {
	cfg := Config{
		Endpoint:  os.Getenv("ZENKOKU_HOUJIN_ENDPOINT"),
		SecretKey: os.Getenv("ZENKOKU_HOUJIN_SECRET_KEY"),
	}
	if v := os.Getenv("ZENKOKU_HOUJIN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid ZENKOKU_HOUJIN_TIMEOUT, using no timeout", "value", v, "error", err)
		} else {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("ZENKOKU_HOUJIN_RATE_PER_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			slog.Warn("invalid ZENKOKU_HOUJIN_RATE_PER_SEC, pacing disabled", "value", v)
		} else {
			cfg.RatePerSec = n
		}
	}
	return cfg
}
