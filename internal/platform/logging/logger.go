// Package logging はslogのデフォルトロガーを設定します。
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel は LOG_LEVEL の値をslog.Levelに変換します。未知の値はInfoとして扱います。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup は LOG_LEVEL に従ったJSONロガーをデフォルトロガーに設定します。
func Setup() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)
	return logger
}
