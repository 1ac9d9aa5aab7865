// Package dto は全国法人リスト取り込みAPIのレスポンスDTOを定義します。
package dto

import (
	"time"

	"company_backend/internal/feature/houjinimport/domain/entity"
)

// ImportResponse は取り込み開始・完了のレスポンスDTOです。
type ImportResponse struct {
	Body   string          `json:"body"`             // "in progress" または "completed"
	RunID  string          `json:"run_id,omitempty"` // バッチの実行ID
	Report *ReportResponse `json:"report,omitempty"` // 同期実行時の集計結果
}

// ReportResponse はバッチの集計結果のレスポンスDTOです。
type ReportResponse struct {
	RunID           string            `json:"run_id"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	ElapsedMS       int64             `json:"elapsed_ms"`
	Rows            int               `json:"rows"`
	Created         int               `json:"created"`
	Updated         int               `json:"updated"`
	Skipped         int               `json:"skipped"`
	LookupFailed    int               `json:"lookup_failed"`
	ReconcileFailed int               `json:"reconcile_failed"`
	ParseErrors     int               `json:"parse_errors"`
	Failures        []FailureResponse `json:"failures"`
}

// FailureResponse は失敗した1行の情報です。
type FailureResponse struct {
	Line         int    `json:"line,omitempty"`
	HoujinBangou string `json:"houjin_bangou,omitempty"`
	Outcome      string `json:"outcome"`
	Error        string `json:"error"`
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewReportResponse はドメインのReportをレスポンスDTOに変換します。
func NewReportResponse(r *entity.Report) *ReportResponse {
	out := &ReportResponse{
		RunID:           r.RunID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		ElapsedMS:       r.Elapsed.Milliseconds(),
		Rows:            r.Rows,
		Created:         r.Created,
		Updated:         r.Updated,
		Skipped:         r.Skipped,
		LookupFailed:    r.LookupFailed,
		ReconcileFailed: r.ReconcileFailed,
		ParseErrors:     r.ParseErrors,
		Failures:        make([]FailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		fr := FailureResponse{
			Line:         f.Line,
			HoujinBangou: f.HoujinBangou,
			Outcome:      string(f.Outcome),
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		out.Failures = append(out.Failures, fr)
	}
	return out
}
