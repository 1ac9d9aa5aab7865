package entity

// Row はCSVの1行から取り出した法人番号と法人名です。
type Row struct {
	Line         int // CSV上の行番号（1始まり）
	HoujinBangou string
	Name         string
}
