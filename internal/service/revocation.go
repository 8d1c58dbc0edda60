package service

import (
	"context"
	"fmt"
	"time"

	"github.com/novel-tts/backend/internal/metrics"
	"github.com/rs/zerolog"
)

type RevocationRepo interface {
	InsertRevokedToken(ctx context.Context, jti string, expiresAt *time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpiredRevokedTokens(ctx context.Context, before time.Time) (int64, error)
}

// RevocationLedger is the denylist of token IDs. Any token whose jti is in the
// ledger is rejected even if its signature and expiry are fine.
type RevocationLedger struct {
	repo    RevocationRepo
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewRevocationLedger(repo RevocationRepo, log zerolog.Logger, m *metrics.Metrics) *RevocationLedger {
	return &RevocationLedger{
		repo:    repo,
		log:     log.With().Str("component", "revocation_ledger").Logger(),
		metrics: m,
	}
}

// Revoke records jti. Revoking the same jti again is a no-op. expiresAt is the
// token's own expiry and lets Sweep drop the row once it no longer matters.
func (l *RevocationLedger) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrMissingTokenID
	}
	var exp *time.Time
	if !expiresAt.IsZero() {
		exp = &expiresAt
	}
	if err := l.repo.InsertRevokedToken(ctx, jti, exp); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *RevocationLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := l.repo.IsTokenRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}

// Sweep deletes entries whose token expired before now. Such tokens already
// fail the expiry check, so the ledger row is dead weight.
func (l *RevocationLedger) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.repo.DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep revoked tokens: %w", err)
	}
	l.metrics.ObserveSwept(n)
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled. A non-positive
// interval disables sweeping and returns immediately.
func (l *RevocationLedger) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		l.log.Info().Msg("revoked token sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := l.Sweep(ctx, now)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if n > 0 {
				l.log.Info().Int64("deleted", n).Msg("swept expired revoked tokens")
			}
		}
	}
}
