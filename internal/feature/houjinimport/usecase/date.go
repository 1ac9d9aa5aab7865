package usecase

import (
	"regexp"
	"time"
)

// incorporatedAtPattern は設立日として受け付ける yyyy-mm-dd 形式です。
var incorporatedAtPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseIncorporatedAt は設立日文字列を日付に変換します。
// yyyy-mm-dd 形式でない文字列（yyyy-mm や空文字を含む）や存在しない日付はnilを返します。
func ParseIncorporatedAt(s string) *time.Time {
	if !incorporatedAtPattern.MatchString(s) {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
