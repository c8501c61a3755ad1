package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
)

var (
	_ service.TokenCodec         = (*MockTokenCodec)(nil)
	_ service.TokenService       = (*MockTokenService)(nil)
	_ service.UserLookup         = (*MockUserLookup)(nil)
	_ service.UserRegistrar      = (*MockUserRegistrar)(nil)
	_ service.UserAccounts       = (*MockUserAccounts)(nil)
	_ service.CredentialVerifier = (*MockCredentialVerifier)(nil)
	_ service.PasswordHasher     = (*MockPasswordHasher)(nil)
	_ service.RateLimiter        = (*MockRateLimiter)(nil)
	_ service.TokenMetrics       = (*MockTokenMetrics)(nil)
)

// MockTokenCodec is a mock implementation of service.TokenCodec
type MockTokenCodec struct {
	mock.Mock
}

func (m *MockTokenCodec) Sign(claims models.TokenClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenCodec) Parse(token string) (*models.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenClaims), args.Error(1)
}

// MockTokenService is a mock implementation of service.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateAccessToken(ctx context.Context, subject string) (string, error) {
	args := m.Called(ctx, subject)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) GenerateRefreshToken(ctx context.Context, subject string) (string, error) {
	args := m.Called(ctx, subject)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ParseToken(ctx context.Context, token string) (*models.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenClaims), args.Error(1)
}

func (m *MockTokenService) IsTokenValid(ctx context.Context, token, expectedSubject string) (bool, error) {
	args := m.Called(ctx, token, expectedSubject)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenService) ExtractSubject(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Policy() service.TokenPolicy {
	args := m.Called()
	return args.Get(0).(service.TokenPolicy)
}

// MockUserLookup is a mock implementation of service.UserLookup
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) FindByEmail(ctx context.Context, email string) (*models.UserCredentials, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCredentials), args.Error(1)
}

func (m *MockUserLookup) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockUserRegistrar is a mock implementation of service.UserRegistrar
type MockUserRegistrar struct {
	mock.Mock
}

func (m *MockUserRegistrar) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRegistrar) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockUserRegistrar) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockCredentialVerifier struct {
	mock.Mock
}

func (m *MockCredentialVerifier) Verify(hash, plain string) bool {
	args := m.Called(hash, plain)
	return args.Bool(0)
}

type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

// MockRateLimiter is a mock implementation of service.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}

type MockTokenMetrics struct {
	mock.Mock
}

func (m *MockTokenMetrics) RecordTokenIssued(tokenType string) {
	m.Called(tokenType)
}

func (m *MockTokenMetrics) RecordTokenValidation(outcome string) {
	m.Called(outcome)
}

func (m *MockTokenMetrics) RecordTokenRefresh(outcome string) {
	m.Called(outcome)
}

// MockUserAccounts is a mock implementation of service.UserAccounts
type MockUserAccounts struct {
	mock.Mock
}

func (m *MockUserAccounts) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserAccounts) SaveProfile(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserAccounts) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	args := m.Called(ctx, email, hash)
	return args.Error(0)
}

func (m *MockUserAccounts) SetEnabled(ctx context.Context, email string, enabled bool) error {
	args := m.Called(ctx, email, enabled)
	return args.Error(0)
}
