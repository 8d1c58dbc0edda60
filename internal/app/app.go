// Package app wires configuration, storage and services into the runnable
// server and the maintenance commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/novel-tts/backend/internal/config"
	"github.com/novel-tts/backend/internal/db"
	"github.com/novel-tts/backend/internal/handler"
	"github.com/novel-tts/backend/internal/metrics"
	"github.com/novel-tts/backend/internal/security"
	"github.com/novel-tts/backend/internal/service"
	"github.com/novel-tts/backend/internal/storage"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until ctx is cancelled. Migrations run first.
func Serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Auth.InsecureSecret {
		log.Warn().Msg("SECRET_KEY is not set, signing tokens with an insecure default key")
	}
	gin.SetMode(cfg.Server.GinMode)

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	store := db.New(pool)
	m := metrics.New()
	ledger := service.NewRevocationLedger(store, log, m)
	issuer := security.NewTokenIssuer([]byte(cfg.Auth.SecretKey), cfg.Auth.AccessTTL)
	authSvc, err := service.NewAuthService(store, ledger, security.NewBcryptHasher(cfg.Auth.BcryptCost), issuer, log, m)
	if err != nil {
		return err
	}
	novelSvc := service.NewNovelService(store, files, cfg.Storage.MaxUploadBytes, log)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           authSvc,
		Novels:         novelSvc,
		DB:             store,
		Metrics:        m,
		Log:            log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		ledger.RunSweeper(sweepCtx, cfg.Auth.SweepInterval)
	}()
	defer func() {
		stopSweeper()
		<-sweeperDone
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return runServer(ctx, srv, log)
}

// runServer blocks until the server fails or ctx is done, then drains
// in-flight requests.
func runServer(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	return withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
		return nil
	})
}

// SweepRevoked runs one ledger sweep and reports how many rows were deleted.
func SweepRevoked(ctx context.Context, cfg config.Config, log zerolog.Logger) (int64, error) {
	var deleted int64
	err := withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
		ledger := service.NewRevocationLedger(db.New(pool), log, nil)
		n, err := ledger.Sweep(ctx, time.Now())
		deleted = n
		return err
	})
	return deleted, err
}

func withPool(ctx context.Context, cfg config.Config, fn func(*pgxpool.Pool) error) error {
	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}
