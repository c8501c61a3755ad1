// Package models defines the domain models for the tokengate service.
// This file contains the token model: its type discriminant and decoded claims.
package models

import (
	"time"

	"github.com/turtacn/tokengate/pkg/constants"
)

// TokenType discriminates the purpose of a signed token.
// TokenType 区分签名令牌的用途。
type TokenType string

const (
	// TokenTypeAccess authorizes API requests.
	// TokenTypeAccess 用于授权 API 请求。
	TokenTypeAccess TokenType = constants.TokenTypeAccess
	// TokenTypeRefresh is exchanged for new access tokens.
	// TokenTypeRefresh 用于换取新的访问令牌。
	TokenTypeRefresh TokenType = constants.TokenTypeRefresh
)

// IsValid reports whether t is one of the known token types.
func (t TokenType) IsValid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// String implements fmt.Stringer.
func (t TokenType) String() string {
	return string(t)
}

// TokenClaims is the decoded, verified payload of a token.
// TokenClaims 是已验证令牌的解码载荷。
type TokenClaims struct {
	// Subject identifies the user the token was issued to. Immutable once issued.
	// Subject 标识令牌所颁发给的用户，颁发后不可变。
	Subject string `json:"sub"`

	// TokenType is the value of the token_type claim.
	// TokenType 是 token_type 声明的值。
	TokenType TokenType `json:"token_type"`

	// IssuedAt is the iat claim.
	IssuedAt time.Time `json:"iat"`

	// ExpiresAt is the exp claim.
	ExpiresAt time.Time `json:"exp"`
}

// NewTokenClaims builds the claims of a token issued at now and living for ttl.
func NewTokenClaims(subject string, tokenType TokenType, now time.Time, ttl time.Duration) TokenClaims {
	return TokenClaims{
		Subject:   subject,
		TokenType: tokenType,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpiredAt reports whether the token is expired at instant now.
// A token is valid only while its expiry lies strictly in the future.
// IsExpiredAt 判断令牌在 now 时刻是否已过期。
func (c *TokenClaims) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsAccessToken reports whether the claims belong to an access token.
func (c *TokenClaims) IsAccessToken() bool {
	return c.TokenType == TokenTypeAccess
}

// IsRefreshToken reports whether the claims belong to a refresh token.
func (c *TokenClaims) IsRefreshToken() bool {
	return c.TokenType == TokenTypeRefresh
}

// TimeUntilExpiry returns the remaining lifetime at now, or 0 once expired.
func (c *TokenClaims) TimeUntilExpiry(now time.Time) time.Duration {
	if c.IsExpiredAt(now) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
