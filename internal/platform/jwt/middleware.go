// Package jwtmw はJWTによる取り込みAPIの認証を提供します。
package jwtmw

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// EnvKeyJWTSecret は署名鍵を保持する環境変数名です。
	EnvKeyJWTSecret = "JWT_SECRET"

	// ContextSubject はトークンのsubクレームを格納するgin.Contextのキーです。
	ContextSubject = "subject"
)

// LoadSecret は環境変数から署名鍵を読み込みます。
func LoadSecret() string {
	return os.Getenv(EnvKeyJWTSecret)
}

// AuthRequired returns a Gin middleware function that validates HS256 JWT tokens
// and restricts access to callers holding a token signed with secret.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get Authorization header
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")

		if secret == "" {
			// Server misconfiguration (JWT_SECRET not set)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		// 2. Parse and verify JWT signature (only HMAC allowed)
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3. Pass the caller identity to the next handler
		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}
