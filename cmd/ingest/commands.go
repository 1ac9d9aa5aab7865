package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"company_backend/internal/app/di"
	"company_backend/internal/feature/houjinimport/adapters/csvsource"
	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
	infradb "company_backend/internal/platform/db"
	jwtmw "company_backend/internal/platform/jwt"
	infraredis "company_backend/internal/platform/redis"
)

// importOptions は取り込みコマンドのフラグです。未指定の項目は環境変数の値を使います。
type importOptions struct {
	csvPath      string
	encoding     string
	concurrency  int
	failOnErrors bool
}

func newRootCmd() *cobra.Command {
	var opts importOptions

	root := &cobra.Command{
		Use:   "ingest",
		Short: "Import the 全国法人リスト CSV into the company directory",
		Long: `Reads the national corporate registry CSV, looks up each 法人番号 and
creates or fills in company records. Runs synchronously and shares the
import lock with the server, so it refuses to start while another import runs.

Example:
  ingest
  ingest --csv ./data/houjin.csv --encoding shift_jis --concurrency 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	root.Flags().StringVar(&opts.csvPath, "csv", "", "CSV file path (default $IMPORT_CSV_PATH)")
	root.Flags().StringVar(&opts.encoding, "encoding", "", "CSV encoding: utf-8 or shift_jis (default $IMPORT_CSV_ENCODING)")
	root.Flags().IntVar(&opts.concurrency, "concurrency", 0, "max concurrent lookups (default $IMPORT_CONCURRENCY or 30)")
	root.Flags().BoolVar(&opts.failOnErrors, "fail-on-errors", false, "exit non-zero when any row failed")

	root.AddCommand(newTokenCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for calling the import API (signed with $JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return issueToken(cmd.OutOrStdout(), jwtmw.LoadSecret(), subject, ttl)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ops", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func issueToken(w io.Writer, secret, subject string, ttl time.Duration) error {
	if secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := jwtmw.NewGenerator(secret, ttl).GenerateToken(subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

// resolveCSVConfig は環境変数の設定にフラグの値を上書きします。
func resolveCSVConfig(opts importOptions) (csvsource.Config, error) {
	cfg, err := csvsource.LoadConfig()
	if err != nil {
		if opts.encoding == "" {
			return csvsource.Config{}, err
		}
		// 文字コードはフラグで指定されているので環境変数の誤りは無視する
		cfg = csvsource.Config{Path: os.Getenv("IMPORT_CSV_PATH")}
	}
	if opts.csvPath != "" {
		cfg.Path = opts.csvPath
	}
	if cfg.Path == "" {
		cfg.Path = csvsource.DefaultPath
	}
	if opts.encoding != "" {
		enc, err := csvsource.ParseEncoding(opts.encoding)
		if err != nil {
			return csvsource.Config{}, err
		}
		cfg.Encoding = enc
	}
	return cfg, nil
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()

	csvCfg, err := resolveCSVConfig(opts)
	if err != nil {
		return err
	}
	importCfg := usecase.LoadImportConfig()
	if opts.concurrency > 0 {
		importCfg.Concurrency = opts.concurrency
	}

	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		return err
	}

	var rdb *redisv9.Client
	if cfg := infraredis.LoadConfig(); cfg.Enabled() {
		if tmp, err := infraredis.NewRedisClient(ctx, cfg); err != nil {
			log.Println("[WARN] Redis unavailable. Lookup cache, if enabled, stays in process.")
		} else {
			rdb = tmp
			defer func() { _ = rdb.Close() }()
		}
	}

	reporters, closeReporters := di.NewReporters()
	defer closeReporters()

	uc := di.NewImportUsecase(db, di.NewLookupClient(rdb, importCfg.Concurrency), importCfg, reporters...)

	runID, done, err := uc.Start(ctx, csvsource.Opener(csvCfg))
	if err != nil {
		return err
	}
	log.Printf("[INFO] import %s started: %s (%s, concurrency %d)", runID, csvCfg.Path, csvCfg.Encoding, importCfg.Concurrency)

	var report *entity.Report
	select {
	case report = <-done:
	case <-ctx.Done():
		// 終了時にロックファイルはOSが解放する
		return fmt.Errorf("import %s interrupted: %w", runID, ctx.Err())
	}
	printSummary(cmd.OutOrStdout(), report)

	if opts.failOnErrors && report.Failed() > 0 {
		return fmt.Errorf("%d rows failed", report.Failed())
	}
	return nil
}

func printSummary(w io.Writer, r *entity.Report) {
	fmt.Fprintf(w, "run:      %s\n", r.RunID)
	fmt.Fprintf(w, "elapsed:  %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "rows:     %d\n", r.Rows)
	fmt.Fprintf(w, "created:  %d\n", r.Created)
	fmt.Fprintf(w, "updated:  %d\n", r.Updated)
	fmt.Fprintf(w, "skipped:  %d\n", r.Skipped)
	fmt.Fprintf(w, "failed:   %d (lookup %d, reconcile %d, parse %d)\n",
		r.Failed(), r.LookupFailed, r.ReconcileFailed, r.ParseErrors)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  line %d %s [%s]: %v\n", f.Line, f.HoujinBangou, f.Outcome, f.Err)
	}
}
