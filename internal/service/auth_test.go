package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/novel-tts/backend/internal/metrics"
	"github.com/novel-tts/backend/internal/security"
	"github.com/novel-tts/backend/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc     *AuthService
	store   *testutil.MemStore
	issuer  *security.TokenIssuer
	metrics *metrics.Metrics
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := testutil.NewMemStore()
	issuer := security.NewTokenIssuer([]byte("test-secret"), 30*time.Minute)
	m := metrics.New()
	ledger := NewRevocationLedger(store, zerolog.Nop(), m)
	svc, err := NewAuthService(store, ledger, security.NewBcryptHasher(bcrypt.MinCost), issuer, zerolog.Nop(), m)
	require.NoError(t, err)
	return authFixture{svc: svc, store: store, issuer: issuer, metrics: m}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEqual(t, "pw1", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "dup@x.com", "first")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "dup@x.com", "second")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Case@x.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "case@x.com", "pw")
	assert.NoError(t, err)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: " ", password: "pw"},
		{name: "empty password", email: "a@x.com", password: ""},
		{name: "password over bcrypt limit", email: "a@x.com", password: string(make([]byte, security.MaxPasswordBytes+1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Register(ctx, "race@x.com", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrEmailTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, taken)
}

func TestRegister_StorageFailurePropagates(t *testing.T) {
	f := newAuthFixture(t)
	f.store.SetErr(errors.New("connection lost"))

	_, err := f.svc.Register(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection lost")
	assert.False(t, errors.Is(err, ErrEmailTaken))
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "login@x.com", "loginpassword")
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, "login@x.com", "loginpassword")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)

	user, err := f.svc.CurrentUser(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "login@x.com", user.Email)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.AuthOperations.WithLabelValues("login", metrics.ResultSuccess)))
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "known@x.com", "correct")
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, "known@x.com", "wrong")
	_, unknownEmail := f.svc.Login(ctx, "nobody@x.com", "correct")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_StorageFailurePropagates(t *testing.T) {
	f := newAuthFixture(t)
	f.store.SetErr(errors.New("connection lost"))

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

func TestLogin_TokensHaveDistinctJTI(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	first, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	c1, err := f.issuer.Parse(first.AccessToken)
	require.NoError(t, err)
	c2, err := f.issuer.Parse(second.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	resp, err := f.svc.Login(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, resp.AccessToken))

	_, err = f.svc.CurrentUser(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.False(t, errors.Is(err, ErrInvalidToken))

	// still signed and unexpired
	_, err = f.issuer.Parse(resp.AccessToken)
	assert.NoError(t, err)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	tok, _, err := f.issuer.IssueAccess("a@x.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, tok))
	require.NoError(t, f.svc.Logout(ctx, tok))
	assert.Equal(t, 1, f.store.RevokedCount())
}

func TestLogout_OnlyRevokesThatToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	first, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, first.AccessToken))

	_, err = f.svc.CurrentUser(ctx, second.AccessToken)
	assert.NoError(t, err)
}

func TestLogout_InvalidTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	expired, _, err := f.issuer.Issue("a@x.com", -time.Minute)
	require.NoError(t, err)
	foreign, _, err := security.NewTokenIssuer([]byte("other"), time.Hour).IssueAccess("a@x.com")
	require.NoError(t, err)

	for _, tok := range []string{"invalidtoken", expired, foreign} {
		err := f.svc.Logout(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Zero(t, f.store.RevokedCount())
}

func TestLogout_StorageFailurePropagates(t *testing.T) {
	f := newAuthFixture(t)
	tok, _, err := f.issuer.IssueAccess("a@x.com")
	require.NoError(t, err)
	f.store.SetErr(errors.New("connection lost"))

	err = f.svc.Logout(context.Background(), tok)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidToken))
}

func TestCurrentUser_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	tok, _, err := f.issuer.Issue("a@x.com", 0)
	require.NoError(t, err)

	_, err = f.svc.CurrentUser(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
