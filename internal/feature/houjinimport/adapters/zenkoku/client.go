package zenkoku

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"company_backend/internal/feature/houjinimport/adapters/zenkoku/dto"
	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
	"company_backend/internal/shared/ratelimiter"
)

// Client は全国法人情報APIから法人情報を取得するEnrichmentClient実装です。
// リトライは行いません。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface
}

// ClientがEnrichmentClientを実装していることをコンパイル時に検証します。
var _ usecase.EnrichmentClient = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
// limiter がnilの場合、リクエスト間隔を制御しません。
func NewClient(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *Client {
	return &Client{cfg: cfg, client: client, limiter: limiter}
}

// Lookup は法人番号をキーに法人情報を1回照会します。
// 通信エラー、2xx以外のステータス、デコードできないボディは usecase.ErrLookupFailed でラップして返します。
func (c *Client) Lookup(ctx context.Context, houjinBangou string) (*entity.EnrichmentResult, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitIfNeeded(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", usecase.ErrLookupFailed, err)
		}
	}

	payload, err := json.Marshal(dto.LookupRequest{
		HoujinBangou: houjinBangou,
		SecretKey:    c.cfg.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", usecase.ErrLookupFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", usecase.ErrLookupFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrLookupFailed, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: zenkoku-houjin http %d", usecase.ErrLookupFailed, res.StatusCode)
	}

	var body dto.LookupResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", usecase.ErrLookupFailed, err)
	}

	return &entity.EnrichmentResult{
		HoujinBangou:   string(body.HoujinBangou),
		URL:            string(body.URL),
		Tel:            string(body.Tel),
		Prefecture:     string(body.Prefecture),
		Address:        string(body.Address),
		IncorporatedAt: string(body.IncorporatedAt),
		ListingStatus:  string(body.ListingStatus),
		Capital:        string(body.Capital),
		Revenue:        string(body.Revenue),
		EmployeeNumber: string(body.EmployeeNumber),
		Industry:       string(body.Industry),
	}, nil
}
