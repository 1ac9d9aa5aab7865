package redis

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "")
		t.Setenv("REDIS_PORT", "")
		t.Setenv("REDIS_PASSWORD", "")

		cfg := LoadConfig()

		assert.False(t, cfg.Enabled())
		assert.Equal(t, "6379", cfg.Port)
	})

	t.Run("explicit values", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "cache.internal")
		t.Setenv("REDIS_PORT", "6380")
		t.Setenv("REDIS_PASSWORD", "pw")

		cfg := LoadConfig()

		assert.True(t, cfg.Enabled())
		assert.Equal(t, "cache.internal:6380", cfg.Addr())
		assert.Equal(t, "pw", cfg.Password)
	})
}

// TestNewRedisClient_Unreachable は接続できない場合にエラーを返すことを検証します。
func TestNewRedisClient_Unreachable(t *testing.T) {
	t.Parallel()

	// 空きポートを確保してすぐ閉じることで接続拒否される宛先を作る
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	rdb, err := NewRedisClient(context.Background(), Config{Host: host, Port: port})

	assert.Error(t, err)
	assert.Nil(t, rdb)
}
