package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"company_backend/internal/app/di"
	"company_backend/internal/app/router"
	"company_backend/internal/feature/houjinimport/usecase"
	infradb "company_backend/internal/platform/db"
	jwtmw "company_backend/internal/platform/jwt"
	"company_backend/internal/platform/logging"
	infraredis "company_backend/internal/platform/redis"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env not found, using process environment")
	}
	logging.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		log.Fatal(err)
	}

	// Redis
	var rdb *redisv9.Client
	if cfg := infraredis.LoadConfig(); !cfg.Enabled() {
		log.Println("[WARN] REDIS_HOST is not set. Lookup cache, if enabled, stays in process.")
	} else if tmp, err := infraredis.NewRedisClient(ctx, cfg); err != nil {
		log.Println("[WARN] Redis unavailable. Lookup cache, if enabled, stays in process.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 法人情報APIクライアント（Redisキャッシュでラップ）
	importCfg := usecase.LoadImportConfig()
	lookup := di.NewLookupClient(rdb, importCfg.Concurrency)

	reporters, closeReporters := di.NewReporters()
	defer closeReporters()

	// Usecase
	importUC := di.NewImportUsecase(db, lookup, importCfg, reporters...)

	// Handler
	importH, err := di.NewImportHandler(importUC)
	if err != nil {
		log.Fatal(err)
	}

	// JWT_SECRETチェック
	opts := router.Options{
		RequireAuth:  os.Getenv("IMPORT_REQUIRE_AUTH") == "true",
		JWTSecret:    jwtmw.LoadSecret(),
		HealthChecks: di.NewHealthChecks(db, rdb),
	}
	if opts.RequireAuth && opts.JWTSecret == "" {
		log.Println("[WARN] IMPORT_REQUIRE_AUTH is set but JWT_SECRET is empty. Import routes will return 500.")
	}

	// ルータ生成
	r := router.NewRouter(importH, opts)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("[INFO] listening on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("[INFO] shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
