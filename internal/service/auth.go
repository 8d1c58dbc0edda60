package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/novel-tts/backend/internal/db"
	"github.com/novel-tts/backend/internal/metrics"
	"github.com/novel-tts/backend/internal/model"
	"github.com/novel-tts/backend/internal/security"
	"github.com/rs/zerolog"
)

const tokenTypeBearer = "bearer"

// dummyPassword is hashed once at startup so logins for unknown emails spend
// the same bcrypt time as logins with a wrong password.
const dummyPassword = "novel-tts-timing-equalizer"

type AuthService struct {
	users     UserRepo
	ledger    *RevocationLedger
	hasher    security.PasswordHasher
	issuer    *security.TokenIssuer
	validator *TokenValidator
	log       zerolog.Logger
	metrics   *metrics.Metrics
	dummyHash string
}

func NewAuthService(
	users UserRepo,
	ledger *RevocationLedger,
	hasher security.PasswordHasher,
	issuer *security.TokenIssuer,
	log zerolog.Logger,
	m *metrics.Metrics,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		ledger:    ledger,
		hasher:    hasher,
		issuer:    issuer,
		validator: NewTokenValidator(issuer, ledger, users),
		log:       log.With().Str("component", "auth").Logger(),
		metrics:   m,
		dummyHash: dummyHash,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	if strings.TrimSpace(email) == "" || password == "" || len(password) > security.MaxPasswordBytes {
		s.metrics.ObserveAuth("register", metrics.ResultFailure)
		return nil, ErrInvalidInput
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		s.metrics.ObserveAuth("register", metrics.ResultFailure)
		return nil, ErrEmailTaken
	}
	if !db.IsNoRows(err) {
		s.metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, hash)
	if err != nil {
		// 동시 가입 경합: the unique constraint decides the winner.
		if isUniqueViolation(err) {
			s.metrics.ObserveAuth("register", metrics.ResultFailure)
			return nil, ErrEmailTaken
		}
		s.metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.ObserveAuth("register", metrics.ResultSuccess)
	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login returns ErrInvalidCredentials both for an unknown email and for a
// wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !db.IsNoRows(err) {
			s.metrics.ObserveAuth("login", metrics.ResultError)
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		s.metrics.ObserveAuth("login", metrics.ResultFailure)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.ObserveAuth("login", metrics.ResultFailure)
		s.log.Info().Int64("user_id", user.ID).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.issuer.IssueAccess(user.Email)
	if err != nil {
		s.metrics.ObserveAuth("login", metrics.ResultError)
		return nil, err
	}

	s.metrics.ObserveAuth("login", metrics.ResultSuccess)
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
	}, nil
}

// Logout revokes the token's jti. The token must still carry a valid signature
// and be unexpired; revoking an already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		s.metrics.ObserveAuth("logout", metrics.ResultFailure)
		return err
	}
	if claims.ID == "" {
		s.metrics.ObserveAuth("logout", metrics.ResultFailure)
		return ErrMissingTokenID
	}

	if err := s.ledger.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.metrics.ObserveAuth("logout", metrics.ResultError)
		return err
	}

	s.metrics.ObserveAuth("logout", metrics.ResultSuccess)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	user, _, err := s.validator.Validate(ctx, token)
	if err != nil {
		result := metrics.ResultFailure
		if !isAuthFailure(err) {
			result = metrics.ResultError
		}
		s.metrics.ObserveAuth("validate", result)
		return nil, err
	}
	return user, nil
}

func isAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrUserNotFound)
}
