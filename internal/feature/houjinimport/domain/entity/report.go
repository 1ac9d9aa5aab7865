package entity

import "time"

// Outcome は1行分の処理結果の種別です。
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeUpdated         Outcome = "updated"
	OutcomeSkipped         Outcome = "skipped" // URLが空のため取り込み対象外
	OutcomeLookupFailed    Outcome = "lookup_failed"
	OutcomeReconcileFailed Outcome = "reconcile_failed"
	OutcomeParseError      Outcome = "parse_error"
)

// MaxReportedFailures はReportに保持する失敗行の最大件数です。
const MaxReportedFailures = 100

// RowResult は1行分の処理結果です。
type RowResult struct {
	Line         int
	HoujinBangou string
	Outcome      Outcome
	Err          error
}

// Report は1回の取り込みバッチの集計結果です。
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Elapsed    time.Duration

	Rows            int // 照会対象としてスケジュールされた行数
	Created         int
	Updated         int
	Skipped         int
	LookupFailed    int
	ReconcileFailed int
	ParseErrors     int

	// Failures は失敗した行の先頭MaxReportedFailures件です。
	Failures []RowResult
}

// Add は1行分の結果を集計に加えます。並行呼び出しには対応していません。
func (r *Report) Add(res RowResult) {
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeLookupFailed:
		r.LookupFailed++
	case OutcomeReconcileFailed:
		r.ReconcileFailed++
	case OutcomeParseError:
		r.ParseErrors++
	}
	if res.Err != nil && len(r.Failures) < MaxReportedFailures {
		r.Failures = append(r.Failures, res)
	}
}

// Failed は失敗した行の合計件数を返します。
func (r *Report) Failed() int {
	return r.LookupFailed + r.ReconcileFailed + r.ParseErrors
}
