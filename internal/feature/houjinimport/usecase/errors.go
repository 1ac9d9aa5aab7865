// Package usecase は全国法人リスト取り込みのビジネスロジックを実装します。
package usecase

import "errors"

var (
	// ErrCSVParse はCSVの1行が解析できなかった場合のエラーです。その行のみスキップされます。
	ErrCSVParse = errors.New("csv parse error")

	// ErrLookupFailed は法人情報APIの呼び出しに失敗した場合のエラーです。その行の処理は中断されます。
	ErrLookupFailed = errors.New("lookup failed")

	// ErrReconcile は企業レコードの読み書きに失敗した場合のエラーです。
	ErrReconcile = errors.New("reconcile failed")

	// ErrCompanyNotFound は更新対象の企業が存在しない場合のエラーです。
	ErrCompanyNotFound = errors.New("company not found")

	// ErrSourceUnavailable はCSVを開けなかった場合のエラーです。行の処理が始まる前に返されます。
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrImportInProgress は別の取り込みが実行中の場合に返されます。
	ErrImportInProgress = errors.New("import already in progress")
)
