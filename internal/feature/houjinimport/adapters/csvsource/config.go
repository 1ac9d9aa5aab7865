package csvsource

import (
	"os"

	"company_backend/internal/feature/houjinimport/usecase"
)

// DefaultPath は IMPORT_CSV_PATH が未設定の場合のCSVファイルのパスです。
const DefaultPath = "data/zenkoku_houjin.csv"

// Config は取り込むCSVファイルの設定です。
type Config struct {
	Path     string
	Encoding Encoding
}

// LoadConfig は環境変数からCSVファイルの設定を読み込みます。
func LoadConfig() (Config, error) {
	enc, err := ParseEncoding(os.Getenv("IMPORT_CSV_ENCODING"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Path: os.Getenv("IMPORT_CSV_PATH"), Encoding: enc}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	return cfg, nil
}

// Opener は取り込みのたびにCSVファイルを開き直す usecase.SourceOpener を返します。
func Opener(cfg Config) usecase.SourceOpener {
	return func() (usecase.RowSource, error) {
		src, err := Open(cfg.Path, cfg.Encoding)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
