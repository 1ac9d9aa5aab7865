package di

import (
	"log/slog"

	"company_backend/internal/feature/houjinimport/usecase"
	"company_backend/internal/platform/events"
)

// NewReporters creates the configured batch summary reporters and a function that closes them.
func NewReporters() ([]usecase.Reporter, func()) {
	cfg := events.LoadConfig()
	if !cfg.Enabled() {
		return nil, func() {}
	}

	kr := events.NewKafkaReporter(cfg)
	slog.Info("import events enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return []usecase.Reporter{kr}, func() {
		if err := kr.Close(); err != nil {
			slog.Error("failed to close kafka writer", "error", err)
		}
	}
}
