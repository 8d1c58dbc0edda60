package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/novel-tts/backend/internal/app"
	"github.com/novel-tts/backend/internal/config"
	"github.com/novel-tts/backend/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// @title Novel TTS API
// @version 1.0
// @description Accounts, bearer sessions and novel uploads for the Novel TTS service.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	// SIGINT/SIGTERM 수신 시 graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(cfg, log).ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, log zerolog.Logger) *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		return app.Serve(cmd.Context(), cfg, log)
	}

	cmd := &cobra.Command{
		Use:           "novel-tts",
		Short:         "Novel TTS API server",
		Long:          `Serves the Novel TTS HTTP API. Running without a subcommand is the same as "serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  serve,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Migrate(cmd.Context(), cfg, log)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep-revoked",
		Short: "Delete revoked-token entries whose tokens have expired",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := app.SweepRevoked(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d expired revoked tokens\n", n)
			return nil
		},
	})

	return cmd
}
