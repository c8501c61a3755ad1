// Package service defines the token policy and the collaborator interfaces the
// authentication core depends on. Implementations live in infrastructure.
package service

import (
	"context"
	"time"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/pkg/constants"
)

//go:generate mockery --name TokenCodec --output mocks --outpkg mocks
// TokenCodec signs claims into compact tokens and verifies them back.
// TokenCodec 将声明签名为紧凑令牌，并验证令牌还原声明。
type TokenCodec interface {
	// Sign serializes and signs claims.
	// Sign 序列化并签名声明。
	Sign(claims models.TokenClaims) (string, error)

	// Parse verifies the signature and decodes the claims. A correctly signed but
	// expired token yields its claims together with errors.ErrTokenExpired; any
	// other failure yields errors.ErrInvalidToken.
	// Parse 验证签名并解码声明。签名正确但已过期的令牌会同时返回声明与 ErrTokenExpired。
	Parse(token string) (*models.TokenClaims, error)
}

//go:generate mockery --name UserLookup --output mocks --outpkg mocks
// UserLookup resolves a token subject to the stored account.
// UserLookup 将令牌主体解析为已存储的账户。
type UserLookup interface {
	// FindByEmail returns the credentials of the user, or errors.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*models.UserCredentials, error)

	// ExistsByEmail reports whether an account uses email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

//go:generate mockery --name UserRegistrar --output mocks --outpkg mocks
// UserRegistrar persists new accounts.
// UserRegistrar 持久化新账户。
type UserRegistrar interface {
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)

	// FindRoleByName returns the role, or errors.ErrRoleNotFound.
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)

	Create(ctx context.Context, user *models.User) error
}

//go:generate mockery --name UserAccounts --output mocks --outpkg mocks
// UserAccounts manages the profile, password and status of existing accounts.
// UserAccounts 管理已有账户的资料、密码与状态。
type UserAccounts interface {
	// FindUserByEmail returns the stored user, or errors.ErrUserNotFound.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// SaveProfile persists FirstName, LastName and DateOfBirth of user.
	SaveProfile(ctx context.Context, user *models.User) error

	UpdatePasswordHash(ctx context.Context, email, hash string) error

	SetEnabled(ctx context.Context, email string, enabled bool) error
}

// CredentialVerifier checks a plaintext password against a stored hash.
type CredentialVerifier interface {
	Verify(hash, plain string) bool
}

// PasswordHasher derives the stored hash of a plaintext password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

//go:generate mockery --name RateLimiter --output mocks --outpkg mocks
// RateLimiter counts requests per scope and key within a fixed window.
// RateLimiter 在固定窗口内按范围和键计数请求。
type RateLimiter interface {
	// Allow records one request and reports whether it is within the limit,
	// how many requests remain and when the window resets.
	Allow(ctx context.Context, scope constants.RateLimitScope, key string) (allowed bool, remaining int, resetAt time.Time, err error)
}
