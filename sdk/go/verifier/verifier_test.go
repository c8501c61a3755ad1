package verifier_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/infrastructure/crypto"
	"github.com/turtacn/tokengate/internal/interfaces/http/handlers"
	"github.com/turtacn/tokengate/sdk/go/verifier"
)

type jwksServer struct {
	*httptest.Server
	keys   *crypto.KeyPair
	kid    string
	hits   atomic.Int32
	notMod atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := &crypto.KeyPair{PrivateKey: priv, PublicKey: &priv.PublicKey}
	kid, err := keys.KeyID()
	require.NoError(t, err)

	h, err := handlers.NewJWKSHandler(keys)
	require.NoError(t, err)

	s := &jwksServer{keys: keys, kid: kid}
	r := gin.New()
	r.GET("/.well-known/jwks.json", func(c *gin.Context) {
		s.hits.Add(1)
		h.GetJWKS(c)
		if c.Writer.Status() == http.StatusNotModified {
			s.notMod.Add(1)
		}
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) url() string { return s.URL + "/.well-known/jwks.json" }

func (s *jwksServer) sign(t *testing.T, tokenType models.TokenType, ttl time.Duration, opts ...crypto.CodecOption) string {
	t.Helper()
	codec := crypto.NewTokenCodec(s.keys, append([]crypto.CodecOption{crypto.WithKeyID(s.kid)}, opts...)...)
	token, err := codec.Sign(models.NewTokenClaims("alice@example.com", tokenType, time.Now(), ttl))
	require.NoError(t, err)
	return token
}

func (s *jwksServer) signUnknownKid(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "alice@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "other"
	signed, err := tok.SignedString(s.keys.PrivateKey)
	require.NoError(t, err)
	return signed
}

func TestVerifier_Verify(t *testing.T) {
	srv := newJWKSServer(t)
	v := verifier.New(srv.url())
	ctx := context.Background()

	token := srv.sign(t, models.TokenTypeAccess, time.Hour)
	claims, err := v.VerifyAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, verifier.TokenTypeAccess, claims.TokenType)

	_, err = v.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load(), "cached keys are reused")

	require.NoError(t, v.Refresh(ctx))
	assert.Equal(t, int32(1), srv.notMod.Load(), "unchanged set answers 304")
}

func TestVerifier_Rejects(t *testing.T) {
	srv := newJWKSServer(t)
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		_, err := verifier.New(srv.url()).Verify(ctx, srv.sign(t, models.TokenTypeAccess, -time.Minute))
		assert.ErrorIs(t, err, verifier.ErrTokenExpired)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := verifier.New(srv.url()).VerifyAccessToken(ctx, srv.sign(t, models.TokenTypeRefresh, time.Hour))
		assert.ErrorIs(t, err, verifier.ErrInvalidToken)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		token := srv.sign(t, models.TokenTypeAccess, time.Hour, crypto.WithIssuer("someone-else"))
		_, err := verifier.New(srv.url(), verifier.WithIssuer("tokengate")).Verify(ctx, token)
		assert.ErrorIs(t, err, verifier.ErrInvalidToken)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := verifier.New(srv.url()).Verify(ctx, srv.signUnknownKid(t))
		assert.ErrorIs(t, err, verifier.ErrKidNotFound)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.New(srv.url()).Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, verifier.ErrInvalidToken)
	})
}

func TestVerifier_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := verifier.New(srv.URL).Refresh(context.Background())
	assert.Error(t, err)
}

func TestVerifier_UnknownKidRefreshThrottled(t *testing.T) {
	ctx := context.Background()

	t.Run("misses inside the interval do not refetch", func(t *testing.T) {
		srv := newJWKSServer(t)
		v := verifier.New(srv.url())

		_, err := v.Verify(ctx, srv.signUnknownKid(t))
		assert.ErrorIs(t, err, verifier.ErrKidNotFound)
		_, err = v.Verify(ctx, srv.signUnknownKid(t))
		assert.ErrorIs(t, err, verifier.ErrKidNotFound)
		assert.Equal(t, int32(1), srv.hits.Load())

		_, err = v.Verify(ctx, srv.sign(t, models.TokenTypeAccess, time.Hour))
		require.NoError(t, err, "known kids are served from the cache")
		assert.Equal(t, int32(1), srv.hits.Load())
	})

	t.Run("zero interval refetches on every miss", func(t *testing.T) {
		srv := newJWKSServer(t)
		v := verifier.New(srv.url(), verifier.WithMinRefreshInterval(0))

		for i := 0; i < 3; i++ {
			_, err := v.Verify(ctx, srv.signUnknownKid(t))
			assert.ErrorIs(t, err, verifier.ErrKidNotFound)
		}
		assert.Equal(t, int32(3), srv.hits.Load())
	})

	t.Run("explicit refresh is not throttled", func(t *testing.T) {
		srv := newJWKSServer(t)
		v := verifier.New(srv.url(), verifier.WithMinRefreshInterval(time.Hour))

		require.NoError(t, v.Refresh(ctx))
		require.NoError(t, v.Refresh(ctx))
		assert.Equal(t, int32(2), srv.hits.Load())
	})
}
