// Package entity は全国法人リスト取り込みフィーチャーのドメインモデルを定義します。
package entity

import "time"

// Company は企業ディレクトリに永続化される企業レコードです。
// 法人番号・URL・電話番号は空文字、設立日はnilを「未設定」として扱います。
// 法人番号は一意ではなく、同じ法人番号を持つレコードが複数存在することがあります。
type Company struct {
	ID             uint
	Name           string     // 法人名
	Prefecture     string     // 都道府県
	Address        string     // 住所
	IncorporatedAt *time.Time // 設立日
	HoujinBangou   string     // 法人番号
	ListingStatus  string     // 上場状況
	Capital        string     // 資本金
	Revenue        string     // 売上高
	URL            string
	Tel            string
	EmployeeNumber string // 従業員数
	Memo           string

	// ZenkokuHoujin は業種分類です。未作成の場合はnilです。
	ZenkokuHoujin *ZenkokuHoujin
}

// ZenkokuHoujin は企業に1対1で紐づく業種分類レコードです。
type ZenkokuHoujin struct {
	Industry string
}

// CompanyPatch は既存企業への差分更新です。nilのフィールドは変更しません。
type CompanyPatch struct {
	HoujinBangou   *string
	URL            *string
	Tel            *string
	IncorporatedAt *time.Time
	Memo           *string

	// Industry が設定されている場合、業種分類を作成または上書きします。
	Industry *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返します。
func (p CompanyPatch) IsEmpty() bool {
	return p.HoujinBangou == nil &&
		p.URL == nil &&
		p.Tel == nil &&
		p.IncorporatedAt == nil &&
		p.Memo == nil &&
		p.Industry == nil
}
