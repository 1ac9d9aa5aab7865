package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/shared/limiter"
)

// EnrichmentClient は法人番号から法人情報を取得する外部APIを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type EnrichmentClient interface {
	Lookup(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error)
}

// RowSource はCSVなどから読み出す行のシーケンスです。
type RowSource interface {
	Rows() iter.Seq2[entity.Row, error]
	Close() error
}

// SourceOpener は取り込みのたびに RowSource を開きます。
type SourceOpener func() (RowSource, error)

// Reporter はバッチの完了サマリーを外部に通知します。
type Reporter interface {
	Report(ctx context.Context, report *entity.Report) error
}

// RunGuard は取り込みの多重実行を防ぐロックです。
type RunGuard interface {
	TryLock() (bool, error)
	Unlock() error
}

// ImportConfig は取り込みバッチの設定です。
type ImportConfig struct {
	Concurrency int // 法人情報APIへの同時リクエスト数
}

// LoadImportConfig は環境変数から取り込みバッチの設定を読み込みます。
func LoadImportConfig() ImportConfig {
	cfg := ImportConfig{Concurrency: limiter.DefaultConcurrency}
	if v, err := strconv.Atoi(os.Getenv("IMPORT_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	return cfg
}

// ImportUsecase はCSVの各行について法人情報を取得し、企業ディレクトリへ反映するバッチを実行します。
type ImportUsecase struct {
	client      EnrichmentClient
	reconciler  *Reconciler
	guard       RunGuard
	reporters   []Reporter
	concurrency int

	mu   sync.RWMutex
	last *entity.Report
}

// NewImportUsecase は新しい ImportUsecase を作成します。guard がnilの場合は多重実行を防ぎません。
func NewImportUsecase(client EnrichmentClient, repo CompanyRepository, guard RunGuard, cfg ImportConfig, reporters ...Reporter) *ImportUsecase {
	return &ImportUsecase{
		client:      client,
		reconciler:  NewReconciler(repo),
		guard:       guard,
		reporters:   reporters,
		concurrency: cfg.Concurrency,
	}
}

// Start はロックを取得してソースを開き、バッチをバックグラウンドで開始します。
// 戻り値のチャネルにはバッチ完了時にReportが1件送られます。
// 別の取り込みが実行中なら ErrImportInProgress、ソースを開けなければ ErrSourceUnavailable を返します。
// バッチは呼び出し元のコンテキストのキャンセルの影響を受けません。
func (u *ImportUsecase) Start(ctx context.Context, open SourceOpener) (string, <-chan *entity.Report, error) {
	if u.guard != nil {
		ok, err := u.guard.TryLock()
		if err != nil {
			return "", nil, fmt.Errorf("acquire import lock: %w", err)
		}
		if !ok {
			return "", nil, ErrImportInProgress
		}
	}

	src, err := open()
	if err != nil {
		u.unlock()
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return "", nil, err
	}

	runID := uuid.NewString()
	done := make(chan *entity.Report, 1)
	go func() {
		report := u.run(context.WithoutCancel(ctx), runID, src)
		if err := src.Close(); err != nil {
			slog.Warn("failed to close record source", "run_id", runID, "error", err)
		}
		u.unlock()
		done <- report
		close(done)
	}()
	return runID, done, nil
}

// Run は開いたソースに対してバッチを同期的に実行します。ソースは閉じません。
// 行単位の失敗はReportに集計され、バッチ全体は失敗しません。
func (u *ImportUsecase) Run(ctx context.Context, src RowSource) *entity.Report {
	return u.run(ctx, uuid.NewString(), src)
}

// LastReport は直近に完了したバッチのReportを返します。
func (u *ImportUsecase) LastReport() (*entity.Report, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.last, u.last != nil
}

// pendingRow はスケジュール済みの行と完了待ちハンドルの組です。
type pendingRow struct {
	row    entity.Row
	handle *limiter.Handle
}

func (u *ImportUsecase) run(ctx context.Context, runID string, src RowSource) *entity.Report {
	log := slog.With("run_id", runID)
	start := time.Now()
	report := &entity.Report{RunID: runID, StartedAt: start}

	var mu sync.Mutex
	record := func(res entity.RowResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Add(res)
	}

	log.Info("import started", "concurrency", u.concurrency)

	lim := limiter.New(u.concurrency)
	var pending []pendingRow
	for row, err := range src.Rows() {
		if err != nil {
			log.Error("failed to parse csv line", "error", err)
			record(entity.RowResult{Outcome: entity.OutcomeParseError, Err: err})
			continue
		}

		mu.Lock()
		report.Rows++
		mu.Unlock()

		h := lim.Schedule(ctx, func(ctx context.Context) error {
			res := u.processRow(ctx, row)
			record(res)
			return res.Err
		})
		pending = append(pending, pendingRow{row: row, handle: h})
	}

	// 行単位のエラーは各タスク内で集計済み。実行枠を得られなかった行だけここで集計する
	for _, p := range pending {
		if err := p.handle.Wait(); errors.Is(err, limiter.ErrNotAdmitted) {
			log.Error("row was not scheduled", "line", p.row.Line, "houjin_bangou", p.row.HoujinBangou, "error", err)
			record(entity.RowResult{
				Line:         p.row.Line,
				HoujinBangou: p.row.HoujinBangou,
				Outcome:      entity.OutcomeLookupFailed,
				Err:          fmt.Errorf("%w: %w", ErrLookupFailed, err),
			})
		}
	}

	report.FinishedAt = time.Now()
	report.Elapsed = report.FinishedAt.Sub(start)
	log.Info("import completed",
		"elapsed", report.Elapsed,
		"rows", report.Rows,
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"lookup_failed", report.LookupFailed,
		"reconcile_failed", report.ReconcileFailed,
		"parse_errors", report.ParseErrors,
	)

	u.mu.Lock()
	u.last = report
	u.mu.Unlock()

	for _, r := range u.reporters {
		if err := r.Report(ctx, report); err != nil {
			log.Warn("failed to publish import report", "error", err)
		}
	}
	return report
}

// processRow は1行分の法人情報を取得し、企業ディレクトリへ反映します。
// 照会や反映がpanicしても、その時点の段階の失敗として結果を返します。
func (u *ImportUsecase) processRow(ctx context.Context, row entity.Row) (res entity.RowResult) {
	res = entity.RowResult{Line: row.Line, HoujinBangou: row.HoujinBangou, Outcome: entity.OutcomeLookupFailed}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		stage := ErrLookupFailed
		if res.Outcome == entity.OutcomeReconcileFailed {
			stage = ErrReconcile
		}
		res.Err = fmt.Errorf("%w: panic: %v", stage, p)
		slog.Error("row processing panicked", "line", row.Line, "houjin_bangou", row.HoujinBangou, "error", res.Err)
	}()

	result, err := u.client.Lookup(ctx, row.HoujinBangou)
	if err != nil {
		if !errors.Is(err, ErrLookupFailed) {
			err = fmt.Errorf("%w: %w", ErrLookupFailed, err)
		}
		slog.Error("failed to look up houjin", "line", row.Line, "houjin_bangou", row.HoujinBangou, "error", err)
		res.Outcome = entity.OutcomeLookupFailed
		res.Err = err
		return res
	}
	if result == nil {
		res.Outcome = entity.OutcomeSkipped
		return res
	}

	// 正規化された法人番号が返らない場合は入力の法人番号で突き合わせる
	if result.HoujinBangou == "" {
		result.HoujinBangou = row.HoujinBangou
	}

	res.Outcome = entity.OutcomeReconcileFailed
	outcome, err := u.reconciler.Reconcile(ctx, *result, row.Name)
	res.Outcome = outcome
	if err != nil {
		slog.Error("failed to reconcile company", "line", row.Line, "houjin_bangou", row.HoujinBangou, "error", err)
		res.Err = err
	}
	return res
}

// unlock は取り込みロックを解放します。
func (u *ImportUsecase) unlock() {
	if u.guard == nil {
		return
	}
	if err := u.guard.Unlock(); err != nil {
		slog.Warn("failed to release import lock", "error", err)
	}
}
