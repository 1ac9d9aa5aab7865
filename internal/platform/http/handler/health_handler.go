// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// checkTimeout は依存先1件あたりの確認時間の上限です。
const checkTimeout = 2 * time.Second

// Check は依存先（DB、Redisなど）の疎通を確認します。
type Check func(ctx context.Context) error

// Health は /healthz エンドポイントのハンドラーを返します。
// checks のいずれかが失敗した場合は 503 を返します。checks が空なら常に 200 です。
func Health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		results := make(map[string]string, len(checks))
		status := http.StatusOK
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(status)
		case http.MethodOptions:
			c.Status(http.StatusNoContent)
		default:
			body := gin.H{"status": "ok"}
			if status != http.StatusOK {
				body["status"] = "unavailable"
			}
			if len(results) > 0 {
				body["checks"] = results
			}
			c.JSON(status, body)
		}
	}
}
