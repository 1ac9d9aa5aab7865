// Package http は外部API呼び出し用のHTTPクライアントを提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// defaultHostConns は hostConns 未指定時の1ホストあたりの接続数です。
const defaultHostConns = 100

// NewHTTPClient は単一ホストのAPIを並行に呼び出すためのHTTPクライアントを作成します。
//
// hostConns は同時に張る接続数の上限で、取り込みの同時実行数と揃えます。
// リミッターで待っている間もアイドル接続が捨てられないよう、アイドル接続も同じ数だけ保持します。
// 0以下の場合は defaultHostConns を使います。
//
// timeout はリクエスト全体のタイムアウトです。0の場合は無制限ですが、接続とTLSハンドシェイクのタイムアウトは常に有効です。
func NewHTTPClient(timeout time.Duration, hostConns int) *http.Client {
	if hostConns <= 0 {
		hostConns = defaultHostConns
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        hostConns,
		MaxIdleConnsPerHost: hostConns,
		MaxConnsPerHost:     hostConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
