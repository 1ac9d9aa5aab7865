// Package limiter は同時実行数に上限を設けてタスクを非同期に実行します。
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency は同時実行数のデフォルト値です。
const DefaultConcurrency = 30

// ErrNotAdmitted は実行枠を得られずタスクが実行されなかった場合のエラーです。
var ErrNotAdmitted = errors.New("task not admitted")

// Task は Limiter で実行される処理です。
type Task func(ctx context.Context) error

// Handle はスケジュールされたタスクの完了を待つためのハンドルです。
type Handle struct {
	done chan struct{}
	err  error
}

// Wait はタスクの完了を待ち、タスク自身が返したエラーを返します。
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done はタスク完了時にcloseされるチャネルを返します。
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Limiter は実行中のタスク数を size 以下に保ちます。
// 空きがない場合、Schedule の呼び出し元は到着順（FIFO）に待たされます。
// 実行中のタスクのキャンセルや優先度、タイムアウトはサポートしません。
type Limiter struct {
	sem     *semaphore.Weighted
	size    int
	running atomic.Int64
	wg      sync.WaitGroup
}

// New は同時実行数 size の Limiter を作成します。size が0以下の場合は DefaultConcurrency を使います。
func New(size int) *Limiter {
	if size <= 0 {
		size = DefaultConcurrency
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Schedule はタスクを実行枠に投入し、完了待ち用の Handle を返します。
// 実行枠が埋まっている間はブロックします。ctx は実行枠の待機とタスクにそのまま渡されます。
// タスクが失敗しても他のタスクには影響しません。
func (l *Limiter) Schedule(ctx context.Context, task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		h.err = fmt.Errorf("%w: %w", ErrNotAdmitted, err)
		close(h.done)
		return h
	}

	l.running.Add(1)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(h.done)
		defer func() {
			l.running.Add(-1)
			l.sem.Release(1)
		}()
		defer func() {
			if p := recover(); p != nil {
				h.err = fmt.Errorf("task panicked: %v", p)
			}
		}()
		h.err = task(ctx)
	}()
	return h
}

// Running は現在実行中のタスク数を返します。
func (l *Limiter) Running() int {
	return int(l.running.Load())
}

// Size は同時実行数の上限を返します。
func (l *Limiter) Size() int {
	return l.size
}

// Wait はこれまでにスケジュールされたすべてのタスクの完了を待ちます。
func (l *Limiter) Wait() {
	l.wg.Wait()
}
