package service

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/novel-tts/backend/internal/security"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("not found")
	ErrFileTooLarge       = errors.New("file too large")
)

// Token errors come from the security package; re-exported so callers only
// need this package to classify failures.
var (
	ErrInvalidToken   = security.ErrInvalidToken
	ErrTokenExpired   = security.ErrTokenExpired
	ErrMissingTokenID = security.ErrMissingTokenID
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}
