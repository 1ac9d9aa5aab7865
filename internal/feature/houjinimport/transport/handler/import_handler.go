// Package handler は全国法人リスト取り込みフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/transport/http/dto"
	"company_backend/internal/feature/houjinimport/usecase"
)

// ImportUsecase は取り込みバッチ操作のユースケースインターフェースを定義します。
type ImportUsecase interface {
	Start(ctx context.Context, open usecase.SourceOpener) (string, <-chan *entity.Report, error)
	LastReport() (*entity.Report, bool)
}

// ImportHandler は全国法人リスト取り込みのHTTPリクエストを処理します。
type ImportHandler struct {
	uc    ImportUsecase
	open  usecase.SourceOpener
	async bool
}

// NewImportHandler は新しいImportHandlerを生成します。
// async がtrueの場合、取り込み開始直後にレスポンスを返します。
func NewImportHandler(uc ImportUsecase, open usecase.SourceOpener, async bool) *ImportHandler {
	return &ImportHandler{uc: uc, open: open, async: async}
}

// TriggerImport は全国法人リストの取り込みを開始します。
//
// エンドポイント例:
// GET /import/zenkoku-houjin
func (h *ImportHandler) TriggerImport(c *gin.Context) {
	runID, done, err := h.uc.Start(c.Request.Context(), h.open)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrImportInProgress):
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		default:
			slog.Error("failed to start import", "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		}
		return
	}

	if h.async {
		c.JSON(http.StatusOK, dto.ImportResponse{Body: "in progress", RunID: runID})
		return
	}

	select {
	case report := <-done:
		c.JSON(http.StatusOK, dto.ImportResponse{
			Body:   "completed",
			RunID:  runID,
			Report: dto.NewReportResponse(report),
		})
	case <-c.Request.Context().Done():
		// クライアントが切断してもバッチは継続する
		slog.Warn("client disconnected before import completed", "run_id", runID)
	}
}

// GetStatus は直近に完了した取り込みの集計結果を返します。
//
// エンドポイント例:
// GET /import/zenkoku-houjin/status
func (h *ImportHandler) GetStatus(c *gin.Context) {
	report, ok := h.uc.LastReport()
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no import has completed yet"})
		return
	}
	c.JSON(http.StatusOK, dto.NewReportResponse(report))
}
