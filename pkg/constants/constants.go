// Package constants defines system-wide constants for the tokengate service.
package constants

import "time"

// ================================================================================
// Token Constants
// ================================================================================

const (
	// ClaimTokenType is the custom claim discriminating access from refresh tokens.
	ClaimTokenType = "token_type"

	// TokenTypeAccess marks a short-lived access token.
	TokenTypeAccess = "ACCESS_TOKEN"

	// TokenTypeRefresh marks a long-lived refresh token.
	TokenTypeRefresh = "REFRESH_TOKEN"

	// TokenSchemeBearer is the scheme reported to clients in token responses.
	TokenSchemeBearer = "Bearer"

	// SigningAlgorithm is the only JWS algorithm the codec signs with or accepts.
	SigningAlgorithm = "RS256"

	// RSAKeyBits is the modulus size of generated key pairs.
	RSAKeyBits = 2048
)

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens (15 minutes)
	AccessTokenDefaultTTL = 15 * time.Minute

	// RefreshTokenDefaultTTL is the default lifetime for refresh tokens (7 days)
	RefreshTokenDefaultTTL = 7 * 24 * time.Hour
)

// ================================================================================
// Key Material Constants
// ================================================================================

const (
	PrivateKeyFileName = "private_key.pem"
	PublicKeyFileName  = "public_key.pem"
	KeyLockFileName    = ".keys.lock"

	PEMTypePrivateKey = "PRIVATE KEY"
	PEMTypePublicKey  = "PUBLIC KEY"

	// PEMLineLength is the Base64 column width inside PEM framing.
	PEMLineLength = 64

	DefaultKeysDir = "keys/local-only"
)

// ================================================================================
// HTTP Constants
// ================================================================================

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	BearerPrefix        = "Bearer "
)

// Context keys used on gin.Context.
const (
	ContextKeyPrincipal = "principal"
	ContextKeyRequestID = "request_id"
	ContextKeyTraceID   = "trace_id"
)

// ================================================================================
// Role Constants
// ================================================================================

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// ================================================================================
// Rate Limit Constants
// ================================================================================

// RateLimitScope names the dimension a limit is applied to.
type RateLimitScope string

const (
	RateLimitScopeIP    RateLimitScope = "ip"
	RateLimitScopeLogin RateLimitScope = "login"
)
