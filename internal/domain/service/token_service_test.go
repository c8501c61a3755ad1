package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/internal/domain/service/mocks"
	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
	"github.com/turtacn/tokengate/pkg/errors"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

var (
	keysOnce sync.Once
	keys     *crypto.KeyPair
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// newTestClock starts on a whole second because exp is carried in seconds.
func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTokenService(t *testing.T, clock *testClock) service.TokenService {
	t.Helper()
	keysOnce.Do(func() {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		keys = &crypto.KeyPair{PrivateKey: priv, PublicKey: &priv.PublicKey}
	})
	codec := crypto.NewTokenCodec(keys, crypto.WithClock(clock.Now))
	return service.NewTokenService(codec, service.TokenPolicy{
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}, service.WithClock(clock.Now))
}

func TestTokenService_ValidImmediatelyAfterIssue(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, newTestClock())

	for _, subject := range []string{"alice@example.com", "bob@example.org", "x", "名前@例え.jp"} {
		token, err := svc.GenerateAccessToken(ctx, subject)
		require.NoError(t, err)

		valid, err := svc.IsTokenValid(ctx, token, subject)
		require.NoError(t, err)
		assert.True(t, valid, subject)
	}
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		generate func(service.TokenService, context.Context, string) (string, error)
		ttl      time.Duration
	}{
		{"access", service.TokenService.GenerateAccessToken, accessTTL},
		{"refresh", service.TokenService.GenerateRefreshToken, refreshTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newTestClock()
			svc := newTokenService(t, clock)

			token, err := tt.generate(svc, ctx, "alice@example.com")
			require.NoError(t, err)

			clock.Advance(tt.ttl - time.Millisecond)
			valid, err := svc.IsTokenValid(ctx, token, "alice@example.com")
			require.NoError(t, err)
			assert.True(t, valid, "valid one millisecond before expiry")

			clock.Advance(2 * time.Millisecond)
			valid, err = svc.IsTokenValid(ctx, token, "alice@example.com")
			require.NoError(t, err)
			assert.False(t, valid, "invalid one millisecond after expiry")
		})
	}
}

func TestTokenService_ExpiryTruncatedToSeconds(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	clock.Advance(600 * time.Millisecond)
	svc := newTokenService(t, clock)

	token, err := svc.GenerateAccessToken(ctx, "alice@example.com")
	require.NoError(t, err)

	// exp carries whole seconds, so the token lapses at 10:15:00 rather than 10:15:00.600.
	clock.Advance(accessTTL - 601*time.Millisecond)
	valid, err := svc.IsTokenValid(ctx, token, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, valid)

	clock.Advance(2 * time.Millisecond)
	valid, err = svc.IsTokenValid(ctx, token, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, valid, "expired before issue+ttl")

	clock.Advance(598 * time.Millisecond)
	valid, err = svc.IsTokenValid(ctx, token, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, valid, "issue+ttl-1ms")
}

func TestTokenService_SubjectMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, newTestClock())

	token, err := svc.GenerateAccessToken(ctx, "alice@example.com")
	require.NoError(t, err)

	valid, err := svc.IsTokenValid(ctx, token, "mallory@example.com")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTokenService_TamperedSignature(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, newTestClock())

	token, err := svc.GenerateAccessToken(ctx, "alice@example.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[len(sig)/2] ^= 0xFF
	forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	valid, err := svc.IsTokenValid(ctx, forged, "alice@example.com")
	assert.False(t, valid)
	assert.True(t, errors.Is(err, errors.ErrInvalidToken))

	_, err = svc.ExtractSubject(ctx, forged)
	assert.True(t, errors.Is(err, errors.ErrInvalidToken))

	_, err = svc.RefreshAccessToken(ctx, forged)
	assert.True(t, errors.Is(err, errors.ErrInvalidToken))
}

func TestTokenService_ExtractSubjectFromExpiredToken(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	svc := newTokenService(t, clock)

	token, err := svc.GenerateAccessToken(ctx, "alice@example.com")
	require.NoError(t, err)

	clock.Advance(accessTTL + time.Second)
	subject, err := svc.ExtractSubject(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	claims, err := svc.ParseToken(ctx, token)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
	require.NotNil(t, claims)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
}

func TestTokenService_RefreshAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("access token is the wrong type", func(t *testing.T) {
		svc := newTokenService(t, newTestClock())
		access, err := svc.GenerateAccessToken(ctx, "alice@example.com")
		require.NoError(t, err)

		_, err = svc.RefreshAccessToken(ctx, access)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrWrongTokenType))
	})

	t.Run("expired access token is still the wrong type", func(t *testing.T) {
		clock := newTestClock()
		svc := newTokenService(t, clock)
		access, err := svc.GenerateAccessToken(ctx, "alice@example.com")
		require.NoError(t, err)

		clock.Advance(accessTTL + time.Second)
		_, err = svc.RefreshAccessToken(ctx, access)
		assert.True(t, errors.Is(err, errors.ErrWrongTokenType))
	})

	t.Run("expired refresh token", func(t *testing.T) {
		clock := newTestClock()
		svc := newTokenService(t, clock)
		refresh, err := svc.GenerateRefreshToken(ctx, "alice@example.com")
		require.NoError(t, err)

		clock.Advance(refreshTTL + time.Millisecond)
		_, err = svc.RefreshAccessToken(ctx, refresh)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrTokenExpired))
	})

	t.Run("valid refresh token", func(t *testing.T) {
		clock := newTestClock()
		svc := newTokenService(t, clock)
		refresh, err := svc.GenerateRefreshToken(ctx, "alice@example.com")
		require.NoError(t, err)

		clock.Advance(time.Hour)
		access, err := svc.RefreshAccessToken(ctx, refresh)
		require.NoError(t, err)

		subject, err := svc.ExtractSubject(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", subject)

		claims, err := svc.ParseToken(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
		assert.True(t, claims.ExpiresAt.Equal(clock.Now().Add(accessTTL)))

		again, err := svc.RefreshAccessToken(ctx, refresh)
		require.NoError(t, err, "refresh tokens are not consumed")
		assert.NotEmpty(t, again)
	})
}

func TestTokenService_EmptySubject(t *testing.T) {
	svc := newTokenService(t, newTestClock())

	_, err := svc.GenerateAccessToken(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestTokenService_AliceScenario(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	svc := newTokenService(t, clock)
	const alice = "alice@example.com"

	access, err := svc.GenerateAccessToken(ctx, alice)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, alice)
	require.NoError(t, err)

	valid, err := svc.IsTokenValid(ctx, access, alice)
	require.NoError(t, err)
	assert.True(t, valid)

	clock.Advance(accessTTL + time.Second)

	valid, err = svc.IsTokenValid(ctx, access, alice)
	require.NoError(t, err)
	assert.False(t, valid, "access token past its TTL")

	valid, err = svc.IsTokenValid(ctx, refresh, alice)
	require.NoError(t, err)
	assert.True(t, valid, "refresh token outlives the access token")

	renewed, err := svc.RefreshAccessToken(ctx, refresh)
	require.NoError(t, err)

	valid, err = svc.IsTokenValid(ctx, renewed, alice)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestTokenService_Metrics(t *testing.T) {
	ctx := context.Background()
	codec := new(mocks.MockTokenCodec)
	metrics := new(mocks.MockTokenMetrics)
	clock := newTestClock()
	svc := service.NewTokenService(codec, service.TokenPolicy{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		service.WithClock(clock.Now), service.WithMetrics(metrics))

	codec.On("Sign", mock.MatchedBy(func(c models.TokenClaims) bool {
		return c.TokenType == models.TokenTypeAccess && c.ExpiresAt.Equal(clock.Now().Add(time.Minute))
	})).Return("signed", nil)
	codec.On("Parse", "signed").Return(&models.TokenClaims{
		Subject:   "alice@example.com",
		TokenType: models.TokenTypeAccess,
		ExpiresAt: clock.Now().Add(time.Minute),
	}, nil)
	codec.On("Parse", "broken").Return(nil, errors.ErrInvalidToken)
	metrics.On("RecordTokenIssued", "ACCESS_TOKEN").Return()
	metrics.On("RecordTokenValidation", service.OutcomeValid).Return()
	metrics.On("RecordTokenValidation", service.OutcomeInvalid).Return()
	metrics.On("RecordTokenRefresh", service.OutcomeWrongType).Return()

	token, err := svc.GenerateAccessToken(ctx, "alice@example.com")
	require.NoError(t, err)

	valid, err := svc.IsTokenValid(ctx, token, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = svc.IsTokenValid(ctx, "broken", "alice@example.com")
	assert.True(t, errors.Is(err, errors.ErrInvalidToken))

	_, err = svc.RefreshAccessToken(ctx, token)
	assert.True(t, errors.Is(err, errors.ErrWrongTokenType))

	codec.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestTokenService_CodecFailure(t *testing.T) {
	codec := new(mocks.MockTokenCodec)
	svc := service.NewTokenService(codec, service.TokenPolicy{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	codec.On("Parse", "weird").Return(nil, errors.New("decoder exploded"))

	_, err := svc.ExtractSubject(context.Background(), "weird")
	assert.True(t, errors.Is(err, errors.ErrInvalidToken))
}
