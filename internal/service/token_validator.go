package service

import (
	"context"
	"fmt"

	"github.com/novel-tts/backend/internal/db"
	"github.com/novel-tts/backend/internal/model"
	"github.com/novel-tts/backend/internal/security"
)

type UserRepo interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenValidator turns a presented bearer token into a user. Signature and
// expiry are checked statelessly; the ledger and user lookups are the only
// storage round-trips.
type TokenValidator struct {
	issuer *security.TokenIssuer
	ledger *RevocationLedger
	users  UserRepo
}

func NewTokenValidator(issuer *security.TokenIssuer, ledger *RevocationLedger, users UserRepo) *TokenValidator {
	return &TokenValidator{issuer: issuer, ledger: ledger, users: users}
}

func (v *TokenValidator) Validate(ctx context.Context, token string) (*model.User, *security.Claims, error) {
	claims, err := v.issuer.Parse(token)
	if err != nil {
		return nil, nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, nil, fmt.Errorf("%w: sub and jti are required", ErrInvalidToken)
	}

	revoked, err := v.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	user, err := v.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load token subject: %w", err)
	}

	return user, claims, nil
}
