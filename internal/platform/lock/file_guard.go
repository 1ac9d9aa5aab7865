// Package lock は取り込みの多重実行を防ぐロックを提供します。
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"company_backend/internal/feature/houjinimport/usecase"
)

// DefaultPath は IMPORT_LOCK_PATH が未設定の場合のロックファイルのパスです。
var DefaultPath = filepath.Join(os.TempDir(), "zenkoku-houjin-import.lock")

// FileGuard はロックファイルによる取り込みの排他制御です。
// サーバーとCLIのようにプロセスをまたいで排他し、同一プロセス内ではミューテックスで排他します。
type FileGuard struct {
	mu    sync.Mutex
	flock *flock.Flock
}

// FileGuardがRunGuardを実装していることをコンパイル時に検証します。
var _ usecase.RunGuard = (*FileGuard)(nil)

// NewFileGuard は指定されたパスのロックファイルを使うFileGuardを生成します。
func NewFileGuard(path string) *FileGuard {
	if path == "" {
		path = DefaultPath
	}
	return &FileGuard{flock: flock.New(path)}
}

// LoadPath は環境変数からロックファイルのパスを読み込みます。
func LoadPath() string {
	if p := os.Getenv("IMPORT_LOCK_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// TryLock はロックの取得を試みます。既に保持されている場合は待たずにfalseを返します。
func (g *FileGuard) TryLock() (bool, error) {
	// flockは同一プロセスからの再取得を許すため、先にプロセス内で排他する
	if !g.mu.TryLock() {
		return false, nil
	}
	ok, err := g.flock.TryLock()
	if err != nil {
		g.mu.Unlock()
		return false, fmt.Errorf("lock %s: %w", g.flock.Path(), err)
	}
	if !ok {
		g.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Unlock はロックを解放します。
func (g *FileGuard) Unlock() error {
	defer g.mu.Unlock()
	return g.flock.Unlock()
}

// Path はロックファイルのパスを返します。
func (g *FileGuard) Path() string {
	return g.flock.Path()
}
