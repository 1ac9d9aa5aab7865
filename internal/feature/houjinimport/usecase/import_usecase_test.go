package usecase

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company_backend/internal/feature/houjinimport/domain/entity"
)

var ErrAPI = errors.New("api error")

// mockEnrichmentClient is a concurrency-safe mock implementation of the EnrichmentClient interface.
type mockEnrichmentClient struct {
	LookupFunc func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error)

	mu     sync.Mutex
	called []string
}

func (m *mockEnrichmentClient) Lookup(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
	m.mu.Lock()
	m.called = append(m.called, houjinBangou)
	m.mu.Unlock()
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, houjinBangou)
	}
	return nil, errors.New("LookupFunc is not implemented")
}

func (m *mockEnrichmentClient) Called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.called...)
}

// memoryCompanyRepository is an in-memory CompanyRepository that can be used from multiple goroutines.
type memoryCompanyRepository struct {
	mu        sync.Mutex
	companies []entity.Company
	failFind  map[string]bool
}

func (r *memoryCompanyRepository) FindByHoujinBangou(ctx context.Context, houjinBangou string) ([]entity.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind[houjinBangou] {
		return nil, ErrDB
	}
	var out []entity.Company
	for _, c := range r.companies {
		if c.HoujinBangou == houjinBangou {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryCompanyRepository) Create(ctx context.Context, c *entity.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uint(len(r.companies) + 1)
	r.companies = append(r.companies, *c)
	return nil
}

func (r *memoryCompanyRepository) Update(ctx context.Context, id uint, patch entity.CompanyPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.companies {
		if r.companies[i].ID != id {
			continue
		}
		if patch.URL != nil {
			r.companies[i].URL = *patch.URL
		}
		if patch.Memo != nil {
			r.companies[i].Memo = *patch.Memo
		}
		return nil
	}
	return errors.New("company not found")
}

func (r *memoryCompanyRepository) All() []entity.Company {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Company(nil), r.companies...)
}

// sliceSource はあらかじめ用意した行とエラーを返す RowSource です。
type sliceSource struct {
	items  []sourceItem
	closed atomic.Bool
}

type sourceItem struct {
	row entity.Row
	err error
}

func (s *sliceSource) Rows() iter.Seq2[entity.Row, error] {
	return func(yield func(entity.Row, error) bool) {
		for _, it := range s.items {
			if !yield(it.row, it.err) {
				return
			}
		}
	}
}

func (s *sliceSource) Close() error {
	s.closed.Store(true)
	return nil
}

func rowsOf(houjinBangous ...string) *sliceSource {
	s := &sliceSource{}
	for i, hb := range houjinBangous {
		s.items = append(s.items, sourceItem{row: entity.Row{Line: i + 1, HoujinBangou: hb, Name: "Company " + hb}})
	}
	return s
}

// fakeGuard は取り込みロックのテスト用実装です。
type fakeGuard struct {
	mu       sync.Mutex
	locked   bool
	lockErr  error
	unlocked int
}

func (g *fakeGuard) TryLock() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lockErr != nil {
		return false, g.lockErr
	}
	if g.locked {
		return false, nil
	}
	g.locked = true
	return true, nil
}

func (g *fakeGuard) Unlock() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = false
	g.unlocked++
	return nil
}

func (g *fakeGuard) IsLocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

// recordingReporter は受け取ったReportを保持します。
type recordingReporter struct {
	mu      sync.Mutex
	reports []*entity.Report
	err     error
}

func (r *recordingReporter) Report(ctx context.Context, report *entity.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func resultFor(houjinBangou string) *entity.EnrichmentResult {
	return &entity.EnrichmentResult{HoujinBangou: houjinBangou, URL: "http://" + houjinBangou + ".example", Industry: "Tech"}
}

// TestImportUsecase_Run_AggregatesOutcomes は行ごとの結果がReportに集計されることを検証します。
func TestImportUsecase_Run_AggregatesOutcomes(t *testing.T) {
	t.Parallel()

	repo := &memoryCompanyRepository{
		companies: []entity.Company{{ID: 1, HoujinBangou: "2000000000000"}},
		failFind:  map[string]bool{"5000000000000": true},
	}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			switch houjinBangou {
			case "3000000000000":
				return &entity.EnrichmentResult{HoujinBangou: houjinBangou}, nil // URLなし
			case "4000000000000":
				return nil, ErrAPI
			}
			return resultFor(houjinBangou), nil
		},
	}
	src := rowsOf("1000000000000", "2000000000000", "3000000000000", "4000000000000", "5000000000000")
	src.items = append(src.items, sourceItem{err: ErrCSVParse})

	uc := NewImportUsecase(client, repo, nil, ImportConfig{Concurrency: 3})
	report := uc.Run(context.Background(), src)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.LookupFailed)
	assert.Equal(t, 1, report.ReconcileFailed)
	assert.Equal(t, 1, report.ParseErrors)
	assert.Equal(t, 3, report.Failed())
	assert.Len(t, report.Failures, 3)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	companies := repo.All()
	require.Len(t, companies, 2)
	assert.Equal(t, "http://2000000000000.example", companies[0].URL)
	assert.Equal(t, ImportMemo, companies[0].Memo)
	assert.Equal(t, "Company 1000000000000", companies[1].Name)

	last, ok := uc.LastReport()
	require.True(t, ok)
	assert.Same(t, report, last)
}

// TestImportUsecase_Run_LookupFailureDoesNotStopSiblings は一部の照会失敗が他の行の処理を止めないことを検証します。
func TestImportUsecase_Run_LookupFailureDoesNotStopSiblings(t *testing.T) {
	t.Parallel()

	repo := &memoryCompanyRepository{}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			if houjinBangou == "0000000000002" {
				return nil, ErrAPI
			}
			return resultFor(houjinBangou), nil
		},
	}

	uc := NewImportUsecase(client, repo, nil, ImportConfig{Concurrency: 2})
	report := uc.Run(context.Background(), rowsOf("0000000000001", "0000000000002", "0000000000003"))

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.LookupFailed)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, ErrLookupFailed)
	assert.ErrorIs(t, report.Failures[0].Err, ErrAPI)
	assert.Equal(t, "0000000000002", report.Failures[0].HoujinBangou)
	assert.Len(t, repo.All(), 2)
}

// TestImportUsecase_Run_PanickingLookupIsReported は照会がpanicした行も失敗としてReportに残ることを検証します。
func TestImportUsecase_Run_PanickingLookupIsReported(t *testing.T) {
	t.Parallel()

	repo := &memoryCompanyRepository{}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			if houjinBangou == "0000000000002" {
				panic("unexpected response shape")
			}
			return resultFor(houjinBangou), nil
		},
	}

	uc := NewImportUsecase(client, repo, nil, ImportConfig{Concurrency: 2})
	report := uc.Run(context.Background(), rowsOf("0000000000001", "0000000000002", "0000000000003"))

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, report.Rows, report.Created+report.Updated+report.Skipped+report.LookupFailed+report.ReconcileFailed)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.LookupFailed)
	assert.Equal(t, 1, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "0000000000002", report.Failures[0].HoujinBangou)
	assert.Equal(t, entity.OutcomeLookupFailed, report.Failures[0].Outcome)
	assert.ErrorIs(t, report.Failures[0].Err, ErrLookupFailed)
	assert.Contains(t, report.Failures[0].Err.Error(), "panic")
}

// TestImportUsecase_Run_PanickingReconcileIsReported は反映中にpanicした行が reconcile_failed として集計されることを検証します。
func TestImportUsecase_Run_PanickingReconcileIsReported(t *testing.T) {
	t.Parallel()

	repo := &mockCompanyRepository{
		FindByHoujinBangouFunc: func(ctx context.Context, houjinBangou string) ([]entity.Company, error) {
			if houjinBangou == "0000000000001" {
				panic("broken driver")
			}
			return nil, nil
		},
	}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			return resultFor(houjinBangou), nil
		},
	}

	report := NewImportUsecase(client, repo, nil, ImportConfig{Concurrency: 1}).
		Run(context.Background(), rowsOf("0000000000001", "0000000000002"))

	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.ReconcileFailed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, entity.OutcomeReconcileFailed, report.Failures[0].Outcome)
	assert.ErrorIs(t, report.Failures[0].Err, ErrReconcile)
	assert.Contains(t, report.Failures[0].Err.Error(), "broken driver")
}

// TestImportUsecase_Run_UsesInputHoujinBangouWhenCanonicalMissing は正規化された法人番号が空の場合に入力の法人番号を使うことを検証します。
func TestImportUsecase_Run_UsesInputHoujinBangouWhenCanonicalMissing(t *testing.T) {
	t.Parallel()

	repo := &memoryCompanyRepository{}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			return &entity.EnrichmentResult{URL: "http://acme.example"}, nil
		},
	}

	report := NewImportUsecase(client, repo, nil, ImportConfig{Concurrency: 1}).
		Run(context.Background(), rowsOf("1234567890123"))

	assert.Equal(t, 1, report.Created)
	companies := repo.All()
	require.Len(t, companies, 1)
	assert.Equal(t, "1234567890123", companies[0].HoujinBangou)
}

// TestImportUsecase_Run_RespectsConcurrency は同時に実行される照会が設定値を超えないことを検証します。
func TestImportUsecase_Run_RespectsConcurrency(t *testing.T) {
	t.Parallel()

	const concurrency = 4
	var current, peak atomic.Int64
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			n := current.Add(1)
			defer current.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			return &entity.EnrichmentResult{HoujinBangou: houjinBangou}, nil
		},
	}

	ids := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		ids = append(ids, string(rune('A'+i%26))+"000000000000")
	}

	report := NewImportUsecase(client, &memoryCompanyRepository{}, nil, ImportConfig{Concurrency: concurrency}).
		Run(context.Background(), rowsOf(ids...))

	assert.Equal(t, 40, report.Rows)
	assert.Equal(t, 40, report.Skipped)
	assert.LessOrEqual(t, peak.Load(), int64(concurrency))
	assert.Len(t, client.Called(), 40)
}

// TestImportUsecase_Run_PublishesReport はバッチ完了時にすべてのReporterへ通知され、通知の失敗が無視されることを検証します。
func TestImportUsecase_Run_PublishesReport(t *testing.T) {
	t.Parallel()

	failing := &recordingReporter{err: errors.New("broker down")}
	ok := &recordingReporter{}
	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			return resultFor(houjinBangou), nil
		},
	}

	report := NewImportUsecase(client, &memoryCompanyRepository{}, nil, ImportConfig{Concurrency: 1}, failing, ok).
		Run(context.Background(), rowsOf("1234567890123"))

	require.Len(t, failing.reports, 1)
	require.Len(t, ok.reports, 1)
	assert.Same(t, report, ok.reports[0])
}

// TestImportUsecase_Start はバックグラウンド実行、多重実行の防止、ソースを開けない場合の動作を検証します。
func TestImportUsecase_Start(t *testing.T) {
	t.Parallel()

	client := &mockEnrichmentClient{
		LookupFunc: func(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
			return resultFor(houjinBangou), nil
		},
	}

	t.Run("success: runs in background and releases lock", func(t *testing.T) {
		t.Parallel()

		guard := &fakeGuard{}
		src := rowsOf("1234567890123")
		uc := NewImportUsecase(client, &memoryCompanyRepository{}, guard, ImportConfig{Concurrency: 1})

		ctx, cancel := context.WithCancel(context.Background())
		runID, done, err := uc.Start(ctx, func() (RowSource, error) { return src, nil })
		// リクエストのコンテキストが終了してもバッチは続行する
		cancel()

		require.NoError(t, err)
		assert.NotEmpty(t, runID)

		select {
		case report := <-done:
			require.NotNil(t, report)
			assert.Equal(t, runID, report.RunID)
			assert.Equal(t, 1, report.Created)
		case <-time.After(5 * time.Second):
			t.Fatal("import did not finish")
		}
		assert.True(t, src.closed.Load(), "source should be closed")
		assert.False(t, guard.IsLocked(), "lock should be released")
	})

	t.Run("error: another import in progress", func(t *testing.T) {
		t.Parallel()

		guard := &fakeGuard{locked: true}
		uc := NewImportUsecase(client, &memoryCompanyRepository{}, guard, ImportConfig{Concurrency: 1})

		opened := false
		_, _, err := uc.Start(context.Background(), func() (RowSource, error) {
			opened = true
			return rowsOf(), nil
		})

		assert.ErrorIs(t, err, ErrImportInProgress)
		assert.False(t, opened, "source should not be opened")
	})

	t.Run("error: lock cannot be acquired", func(t *testing.T) {
		t.Parallel()

		guard := &fakeGuard{lockErr: errors.New("permission denied")}
		uc := NewImportUsecase(client, &memoryCompanyRepository{}, guard, ImportConfig{Concurrency: 1})

		_, _, err := uc.Start(context.Background(), func() (RowSource, error) { return rowsOf(), nil })

		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("error: source unavailable releases lock", func(t *testing.T) {
		t.Parallel()

		guard := &fakeGuard{}
		uc := NewImportUsecase(client, &memoryCompanyRepository{}, guard, ImportConfig{Concurrency: 1})

		_, done, err := uc.Start(context.Background(), func() (RowSource, error) {
			return nil, errors.New("no such file")
		})

		assert.ErrorIs(t, err, ErrSourceUnavailable)
		assert.Nil(t, done)
		assert.False(t, guard.IsLocked())
		assert.Equal(t, 1, guard.unlocked)
	})
}

func TestLoadImportConfig(t *testing.T) {
	t.Setenv("IMPORT_CONCURRENCY", "12")
	assert.Equal(t, 12, LoadImportConfig().Concurrency)

	t.Setenv("IMPORT_CONCURRENCY", "invalid")
	assert.Equal(t, 30, LoadImportConfig().Concurrency)
}
