package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingTokenID = fmt.Errorf("%w: jti missing", ErrInvalidToken)
)

// Claims is the token payload: sub (email), jti, exp and iat.
type Claims struct {
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret []byte, defaultTTL time.Duration) *TokenIssuer {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &TokenIssuer{
		secret:     secret,
		method:     jwt.SigningMethodHS256,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// IssueAccess signs a token for subject with the default TTL.
func (i *TokenIssuer) IssueAccess(subject string) (string, *Claims, error) {
	return i.Issue(subject, i.defaultTTL)
}

// Issue signs a token for subject valid for ttl. A ttl <= 0 yields a token that
// is already expired.
func (i *TokenIssuer) Issue(subject string, ttl time.Duration) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse checks algorithm, signature, structure and expiry. It does not require
// sub or jti; callers decide what they need.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, i.keyFunc,
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return i.secret, nil
}
