package jwtmw

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func runMiddleware(secret, authHeader string) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}
	AuthRequired(secret)(c)
	return w, c
}

// TestAuthRequired_MissingBearerToken はBearerトークンがない場合やプレフィックスが不正な場合に401が返されることを検証します。
func TestAuthRequired_MissingBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase", "bearer token123"},
		{"no space after Bearer", "Bearertoken123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := runMiddleware("test-secret", tt.authHeader)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

// TestAuthRequired_MissingJWTSecret は署名鍵が未設定の場合に500が返されることを検証します。
func TestAuthRequired_MissingJWTSecret(t *testing.T) {
	w, _ := runMiddleware("", "Bearer sometoken")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestAuthRequired_InvalidToken は不正なトークン（改ざん・期限切れ等）で401が返されることを検証します。
func TestAuthRequired_InvalidToken(t *testing.T) {
	const testSecret = "test-secret-key-for-invalid"

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops"}).
		SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"malformed token", "not.a.valid.token"},
		{"random string", "randomstring"},
		{"wrong secret", createTokenWithSecret("wrong-secret", "ops", time.Hour)},
		{"expired token", createTokenWithSecret(testSecret, "ops", -time.Hour)},
		{"missing exp", noExp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := runMiddleware(testSecret, "Bearer "+tt.token)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.True(t, c.IsAborted())
		})
	}
}

// TestAuthRequired_ValidToken は有効なトークンでリクエストが通過し、コンテキストにsubjectが設定されることを検証します。
func TestAuthRequired_ValidToken(t *testing.T) {
	const testSecret = "test-secret-key-for-valid"

	token := createTokenWithSecret(testSecret, "ops@example.com", time.Hour)
	w, c := runMiddleware(testSecret, "Bearer "+token)

	assert.False(t, c.IsAborted(), "response: %s", w.Body.String())
	subject, exists := c.Get(ContextSubject)
	assert.True(t, exists)
	assert.Equal(t, "ops@example.com", subject)
}

// TestAuthRequired_InvalidSigningMethod はnoneアルゴリズム（未署名）のトークンが拒否されることを検証します。
func TestAuthRequired_InvalidSigningMethod(t *testing.T) {
	const testSecret = "test-secret-key-for-signing"

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenStr, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)

	w, _ := runMiddleware(testSecret, "Bearer "+tokenStr)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoadSecret(t *testing.T) {
	t.Setenv(EnvKeyJWTSecret, "from-env")
	assert.Equal(t, "from-env", LoadSecret())
}

// createTokenWithSecret はテスト用に指定されたシークレットとsubjectで署名済みJWTトークンを生成します。
func createTokenWithSecret(secret, subject string, expiration time.Duration) string {
	return mustSign(NewGenerator(secret, expiration), subject)
}

func mustSign(gen Generator, subject string) string {
	signed, err := gen.GenerateToken(subject)
	if err != nil {
		panic(err)
	}
	return signed
}
