// Package router はアプリケーションのルーティングを定義します。
package router

import (
	"github.com/gin-gonic/gin"

	houjinhandler "company_backend/internal/feature/houjinimport/transport/handler"
	"company_backend/internal/platform/http/handler"
	jwtmw "company_backend/internal/platform/jwt"
)

// Options はルーターの設定です。
type Options struct {
	// RequireAuth がtrueの場合、取り込みAPIにJWTを要求します。
	RequireAuth bool
	JWTSecret   string
	// HealthChecks は /healthz で確認する依存先です。
	HealthChecks map[string]handler.Check
}

func NewRouter(importH *houjinhandler.ImportHandler, opts Options) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	health := handler.Health(opts.HealthChecks)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	imports := r.Group("/import")
	if opts.RequireAuth {
		// → リクエストヘッダーに JWT が必要になる
		imports.Use(jwtmw.AuthRequired(opts.JWTSecret))
	}
	{
		// 全国法人リストの取り込み開始
		imports.GET("/zenkoku-houjin", importH.TriggerImport)
		// 直近の取り込み結果
		imports.GET("/zenkoku-houjin/status", importH.GetStatus)
	}

	return r
}
