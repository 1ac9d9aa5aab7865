// Package events は取り込みバッチの完了イベントをKafkaへ送信します。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
)

// EventImportCompleted は取り込み完了イベントの種別です。
const EventImportCompleted = "houjin_import_completed"

const defaultTopic = "houjin-import-events"

// KafkaWriter is the subset of *kafka.Writer used by the reporter.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config はKafka送信の設定です。
type Config struct {
	Brokers []string
	Topic   string
}

// LoadConfig は環境変数からKafka送信の設定を読み込みます。KAFKA_BROKERS はカンマ区切りです。
func LoadConfig() Config {
	cfg := Config{Topic: os.Getenv("IMPORT_EVENTS_TOPIC")}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.Brokers = append(cfg.Brokers, b)
		}
	}
	if cfg.Topic == "" {
		cfg.Topic = defaultTopic
	}
	return cfg
}

// Enabled はブローカーが設定されている場合にtrueを返します。
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// ImportCompletedEvent は取り込み完了時に送信するイベントのペイロードです。
type ImportCompletedEvent struct {
	Type            string    `json:"type"`
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	ElapsedMS       int64     `json:"elapsed_ms"`
	Rows            int       `json:"rows"`
	Created         int       `json:"created"`
	Updated         int       `json:"updated"`
	Skipped         int       `json:"skipped"`
	LookupFailed    int       `json:"lookup_failed"`
	ReconcileFailed int       `json:"reconcile_failed"`
	ParseErrors     int       `json:"parse_errors"`
}

// KafkaReporter は取り込みのReportをKafkaへ送信するReporter実装です。
type KafkaReporter struct {
	writer KafkaWriter
}

// KafkaReporterがReporterを実装していることをコンパイル時に検証します。
var _ usecase.Reporter = (*KafkaReporter)(nil)

// NewKafkaReporter は設定からkafka.Writerを生成してKafkaReporterを作成します。
func NewKafkaReporter(cfg Config) *KafkaReporter {
	return NewKafkaReporterWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaReporterWithWriter は任意のKafkaWriterでKafkaReporterを作成します。
func NewKafkaReporterWithWriter(w KafkaWriter) *KafkaReporter {
	return &KafkaReporter{writer: w}
}

// Report はバッチの集計結果を実行IDをキーとして1件送信します。
func (r *KafkaReporter) Report(ctx context.Context, report *entity.Report) error {
	value, err := json.Marshal(ImportCompletedEvent{
		Type:            EventImportCompleted,
		RunID:           report.RunID,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		ElapsedMS:       report.Elapsed.Milliseconds(),
		Rows:            report.Rows,
		Created:         report.Created,
		Updated:         report.Updated,
		Skipped:         report.Skipped,
		LookupFailed:    report.LookupFailed,
		ReconcileFailed: report.ReconcileFailed,
		ParseErrors:     report.ParseErrors,
	})
	if err != nil {
		return fmt.Errorf("serialize import event: %w", err)
	}

	if err := r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(report.RunID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("produce import event: %w", err)
	}
	slog.Info("import event published", "run_id", report.RunID)
	return nil
}

// Close はKafkaWriterを閉じます。
func (r *KafkaReporter) Close() error {
	return r.writer.Close()
}
