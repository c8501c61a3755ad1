// Package verifier lets a resource server check tokengate access tokens
// offline against the keys published at /.well-known/jwks.json.
package verifier

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

var (
	ErrKidNotFound  = errors.New("kid not found in JWKS")
	ErrNoKeysFound  = errors.New("no usable keys found in JWKS response")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "ACCESS_TOKEN"
	TokenTypeRefresh = "REFRESH_TOKEN"
)

// Claims are the verified claims of a token.
type Claims struct {
	Subject   string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// WithMinRefreshInterval sets how long a kid miss waits before it may refetch
// the key set again. Zero refetches on every miss. The default is 30s.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(v *Verifier) { v.minRefreshInterval = d }
}

// DefaultMinRefreshInterval bounds refetches caused by unknown kids.
const DefaultMinRefreshInterval = 30 * time.Second

// Verifier fetches and caches the JWKS and verifies tokens against it.
// It is safe for concurrent use.
type Verifier struct {
	jwksURL            string
	issuer             string
	httpClient         *http.Client
	minRefreshInterval time.Duration

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastETag    string
	lastRefresh time.Time
}

// New creates a Verifier for the key set served at jwksURL. Keys are fetched
// lazily on the first Verify.
func New(jwksURL string, opts ...Option) *Verifier {
	v := &Verifier{
		jwksURL:            jwksURL,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		minRefreshInterval: DefaultMinRefreshInterval,
		keys:               make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Refresh fetches the key set, sending the last ETag so an unchanged set
// costs a 304.
func (v *Verifier) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	v.mu.RLock()
	if v.lastETag != "" {
		req.Header.Set("If-None-Match", v.lastETag)
	}
	v.mu.RUnlock()

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		v.mu.Lock()
		v.lastRefresh = time.Now()
		v.mu.Unlock()
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for i := 0; i < set.Len(); i++ {
		key, _ := set.Key(i)
		if alg := key.Algorithm(); alg != nil && alg.String() != "" && alg.String() != jwa.RS256.String() {
			continue
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			continue
		}
		keys[key.KeyID()] = &pub
	}
	if len(keys) == 0 {
		return ErrNoKeysFound
	}

	v.mu.Lock()
	v.keys = keys
	v.lastETag = resp.Header.Get("ETag")
	v.lastRefresh = time.Now()
	v.mu.Unlock()
	return nil
}

// Verify checks the signature and expiry of token and returns its claims.
// An unknown kid triggers one refresh of the key set, at most once per
// minimum refresh interval; misses inside the interval fail with ErrKidNotFound.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(token, &wireClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)

	key, found := v.key(kid)
	if !found {
		if !v.claimRefresh() {
			return nil, ErrKidNotFound
		}
		if err := v.Refresh(ctx); err != nil {
			return nil, err
		}
		if key, found = v.key(kid); !found {
			return nil, ErrKidNotFound
		}
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var wc wireClaims
	if _, err := jwt.ParseWithClaims(token, &wc, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, parserOpts...); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{Subject: wc.Subject, TokenType: wc.TokenType}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		claims.ExpiresAt = wc.ExpiresAt.Time
	}
	return claims, nil
}

// VerifyAccessToken is Verify plus a token_type check.
func (v *Verifier) VerifyAccessToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: token_type is %q", ErrInvalidToken, claims.TokenType)
	}
	return claims, nil
}

// claimRefresh reports whether a kid miss may refetch now. A granted claim
// stamps lastRefresh so concurrent misses and failing fetches are throttled too.
func (v *Verifier) claimRefresh() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now()
	if !v.lastRefresh.IsZero() && now.Sub(v.lastRefresh) < v.minRefreshInterval {
		return false
	}
	v.lastRefresh = now
	return true
}

func (v *Verifier) key(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	k, ok := v.keys[kid]
	return k, ok
}
