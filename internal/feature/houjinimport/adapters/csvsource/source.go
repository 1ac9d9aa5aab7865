// Package csvsource は全国法人リストCSVを1行ずつ読み出すレコードソースを提供します。
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
)

const (
	// ColumnCount は全国法人リストCSVの列数です。ヘッダー行はありません。
	ColumnCount = 29

	houjinBangouColumn = 1 // 2列目: 法人番号
	nameColumn         = 6 // 7列目: 法人名
)

// Encoding はCSVファイルの文字コードです。
type Encoding string

const (
	EncodingUTF8     Encoding = "utf-8"
	EncodingShiftJIS Encoding = "shift_jis"
)

// ParseEncoding は設定値から Encoding を返します。空文字はUTF-8として扱います。
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return EncodingShiftJIS, nil
	default:
		return "", fmt.Errorf("unsupported csv encoding %q", s)
	}
}

// ParseError は解析できなかったCSVの行を表します。usecase.ErrCSVParse として判定できます。
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{usecase.ErrCSVParse, e.Err}
}

// Source はCSVから法人番号と法人名を順に読み出します。一度しか読み出せません。
type Source struct {
	r      io.Reader
	closer io.Closer
}

var _ usecase.RowSource = (*Source)(nil)

// New は r を読み出す Source を作成します。
func New(r io.Reader, enc Encoding) *Source {
	return &Source{r: decode(r, enc)}
}

// Open はCSVファイルを開きます。ファイルを開けない場合は usecase.ErrSourceUnavailable を返します。
func Open(path string, enc Encoding) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrSourceUnavailable, err)
	}
	return &Source{r: decode(f, enc), closer: f}, nil
}

// decode は文字コードをUTF-8に変換するReaderを返します。UTF-8の場合は先頭のBOMを取り除きます。
func decode(r io.Reader, enc Encoding) io.Reader {
	if enc == EncodingShiftJIS {
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	}
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// Close は元のファイルを閉じます。
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Rows はCSVの行をファイル順に返します。
// 法人番号が空の行は読み飛ばし、解析できない行は *ParseError を返して次の行へ進みます。
func (s *Source) Rows() iter.Seq2[entity.Row, error] {
	return func(yield func(entity.Row, error) bool) {
		cr := csv.NewReader(s.r)
		cr.FieldsPerRecord = ColumnCount
		cr.ReuseRecord = true

		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if !errors.As(err, &pe) {
					// 読み込み自体の失敗は以降の行も読めないため終了する
					yield(entity.Row{}, fmt.Errorf("read csv: %w", err))
					return
				}
				if !yield(entity.Row{}, &ParseError{Line: pe.StartLine, Err: err}) {
					return
				}
				continue
			}

			houjinBangou := strings.TrimSpace(rec[houjinBangouColumn])
			if houjinBangou == "" {
				continue
			}
			line, _ := cr.FieldPos(0)
			row := entity.Row{
				Line:         line,
				HoujinBangou: houjinBangou,
				Name:         rec[nameColumn],
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
