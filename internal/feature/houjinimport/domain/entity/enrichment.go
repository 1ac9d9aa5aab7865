package entity

// EnrichmentResult は外部の法人情報APIから取得した1法人分のデータです。
// 値は検証せずそのまま保持します（IncorporatedAtは不正な形式の場合があります）。
type EnrichmentResult struct {
	HoujinBangou   string // 正規化された法人番号（入力と異なる場合がある）
	URL            string
	Tel            string
	Prefecture     string
	Address        string
	IncorporatedAt string
	ListingStatus  string
	Capital        string
	Revenue        string
	EmployeeNumber string
	Industry       string
}

// HasData はURLが空でない、つまり取り込む価値のあるデータかどうかを返します。
func (r EnrichmentResult) HasData() bool {
	return r.URL != ""
}
