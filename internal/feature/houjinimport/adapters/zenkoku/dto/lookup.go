// Package dto は全国法人情報APIのリクエスト・レスポンス型を定義します。
package dto

import (
	"bytes"
	"encoding/json"
)

// LookupRequest は法人情報照会のリクエストボディです。
type LookupRequest struct {
	HoujinBangou string `json:"houjin_bangou"`
	SecretKey    string `json:"secret_key"`
}

// LookupResponse は法人情報照会のレスポンスボディです。値は検証せずそのまま受け取ります。
type LookupResponse struct {
	URL            Text `json:"url"`
	HoujinBangou   Text `json:"houjin_bangou"`
	Prefecture     Text `json:"prefecture"`
	Address        Text `json:"address"`
	IncorporatedAt Text `json:"incorporated_at"`
	ListingStatus  Text `json:"listing_status"`
	Capital        Text `json:"capital"`
	Revenue        Text `json:"revenue"`
	EmployeeNumber Text `json:"employee_number"`
	Industry       Text `json:"industry"`
	Tel            Text `json:"tel"`
}

// Text はJSONの値を検証せずに文字列として受け取ります。
// 文字列は中身、nullは空文字、それ以外（数値・真偽値・配列・オブジェクト）はJSON表記そのままになります。
// 資本金や従業員数は数値で返ることがあるため、数値は表記そのままの文字列になります。
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}
