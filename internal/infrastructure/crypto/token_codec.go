package crypto

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/errors"
)

// tokenClaims is the JWT payload: the registered claims plus token_type.
type tokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the clock used to evaluate exp.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIssuer stamps iss on signed tokens and requires it when parsing.
func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		c.issuer = issuer
	}
}

// WithKeyID sets the kid header of signed tokens.
func WithKeyID(kid string) CodecOption {
	return func(c *TokenCodec) {
		c.keyID = kid
	}
}

var _ service.TokenCodec = (*TokenCodec)(nil)

// TokenCodec signs and verifies RS256 compact JWS tokens.
type TokenCodec struct {
	keys   *KeyPair
	now    func() time.Time
	issuer string
	keyID  string
	parser *jwt.Parser
}

// NewTokenCodec creates a TokenCodec over keys.
func NewTokenCodec(keys *KeyPair, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		keys: keys,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(parserOpts...)
	return c
}

// Sign creates and signs a new JWT carrying claims.
func (c *TokenCodec) Sign(claims models.TokenClaims) (string, error) {
	payload := tokenClaims{
		TokenType: claims.TokenType.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, payload)
	if c.keyID != "" {
		token.Header["kid"] = c.keyID
	}

	signed, err := token.SignedString(c.keys.PrivateKey)
	if err != nil {
		return "", errors.ErrInternalServer.WithMessage("failed to sign token").WithError(err)
	}
	return signed, nil
}

// Parse verifies tokenString and decodes its claims.
func (c *TokenCodec) Parse(tokenString string) (*models.TokenClaims, error) {
	var payload tokenClaims
	_, err := c.parser.ParseWithClaims(tokenString, &payload, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.ErrInvalidToken
		}
		return c.keys.PublicKey, nil
	})

	if err != nil {
		// The signature is checked before the claims, so an expiry error means
		// the token is authentic.
		if errors.Is(err, jwt.ErrTokenExpired) && !hasOtherClaimError(err) {
			return toModel(&payload), errors.ErrTokenExpired.WithError(err)
		}
		return nil, errors.ErrInvalidToken.WithError(err)
	}
	return toModel(&payload), nil
}

func hasOtherClaimError(err error) bool {
	return errors.Is(err, jwt.ErrTokenInvalidIssuer) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing) ||
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued)
}

func toModel(p *tokenClaims) *models.TokenClaims {
	claims := &models.TokenClaims{
		Subject:   p.Subject,
		TokenType: models.TokenType(p.TokenType),
	}
	if p.IssuedAt != nil {
		claims.IssuedAt = p.IssuedAt.Time
	}
	if p.ExpiresAt != nil {
		claims.ExpiresAt = p.ExpiresAt.Time
	}
	return claims
}
