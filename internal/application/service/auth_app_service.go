// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	"strings"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/internal/domain/models"
	domainService "github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// Auth attempt results reported to AuthMetrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuthMetrics records the outcome of login, registration and refresh attempts.
type AuthMetrics interface {
	RecordAuthAttempt(operation, result string)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) RecordAuthAttempt(string, string) {}

// AuthAppService defines the interface for authentication application service
type AuthAppService interface {
	// Login verifies the credentials and issues an access and refresh token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)

	// Register creates a new account with the default role
	Register(ctx context.Context, req *dto.RegisterRequest) error

	// Refresh exchanges a refresh token for a new access token
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error)

	// Me describes the principal attached to ctx
	Me(ctx context.Context) (*dto.PrincipalResponse, error)
}

// Option configures the auth application service.
type Option func(*authAppServiceImpl)

// WithAuthMetrics sets the recorder for authentication attempts.
func WithAuthMetrics(m AuthMetrics) Option {
	return func(s *authAppServiceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// authAppServiceImpl is the concrete implementation of AuthAppService
type authAppServiceImpl struct {
	users     domainService.UserLookup
	registrar domainService.UserRegistrar
	verifier  domainService.CredentialVerifier
	hasher    domainService.PasswordHasher
	tokens    domainService.TokenService
	metrics   AuthMetrics
	logger    logger.Logger
}

// NewAuthAppService creates a new instance of AuthAppService
func NewAuthAppService(
	users domainService.UserLookup,
	registrar domainService.UserRegistrar,
	verifier domainService.CredentialVerifier,
	hasher domainService.PasswordHasher,
	tokens domainService.TokenService,
	log logger.Logger,
	opts ...Option,
) AuthAppService {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	s := &authAppServiceImpl{
		users:     users,
		registrar: registrar,
		verifier:  verifier,
		hasher:    hasher,
		tokens:    tokens,
		metrics:   noopAuthMetrics{},
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login implements credential authentication and token pair issuance
func (s *authAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	resp, err := s.login(ctx, req)
	s.record("login", err)
	return resp, err
}

func (s *authAppServiceImpl) login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. Resolve the account; an unknown email looks exactly like a wrong password
	creds, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			s.logger.Info(ctx, "Login rejected: unknown account", logger.Fields{"email": req.Email})
			return nil, errors.ErrBadCredentials
		}
		s.logger.Error(ctx, "Failed to look up user", err, logger.Fields{"email": req.Email})
		return nil, err
	}

	// 2. Account status checks
	if !creds.Enabled {
		s.logger.Info(ctx, "Login rejected: account disabled", logger.Fields{"email": req.Email})
		return nil, errors.ErrUserDisabled
	}
	if creds.Locked {
		s.logger.Info(ctx, "Login rejected: account locked", logger.Fields{"email": req.Email})
		return nil, errors.ErrUserLocked
	}

	// 3. Password check
	if !s.verifier.Verify(creds.PasswordHash, req.Password) {
		s.logger.Info(ctx, "Login rejected: bad credentials", logger.Fields{"email": req.Email})
		return nil, errors.ErrBadCredentials
	}

	// 4. Issue the token pair for the stored subject
	access, err := s.tokens.GenerateAccessToken(ctx, creds.Subject)
	if err != nil {
		s.logger.Error(ctx, "Failed to generate access token", err)
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, creds.Subject)
	if err != nil {
		s.logger.Error(ctx, "Failed to generate refresh token", err)
		return nil, err
	}

	s.logger.Info(ctx, "User logged in", logger.Fields{"subject": creds.Subject})
	return s.tokenResponse(access, refresh), nil
}

// Register implements account creation with the default role
func (s *authAppServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) error {
	err := s.register(ctx, req)
	s.record("register", err)
	return err
}

func (s *authAppServiceImpl) register(ctx context.Context, req *dto.RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error(ctx, "Failed to check email", err)
		return err
	}
	if exists {
		return errors.ErrEmailAlreadyExists
	}

	exists, err = s.registrar.ExistsByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		s.logger.Error(ctx, "Failed to check phone number", err)
		return err
	}
	if exists {
		return errors.ErrPhoneAlreadyExists
	}

	if req.Password != req.ConfirmPassword {
		return errors.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error(ctx, "Failed to hash password", err)
		return errors.ErrInternalServer.WithError(err)
	}

	role, err := s.registrar.FindRoleByName(ctx, constants.RoleUser)
	if err != nil {
		s.logger.Error(ctx, "Default role is missing", err, logger.Fields{"role": constants.RoleUser})
		return err
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hash,
		DateOfBirth:  req.DateOfBirth,
		Enabled:      true,
		Roles:        []models.Role{*role},
	}
	if err := s.registrar.Create(ctx, user); err != nil {
		s.logger.Error(ctx, "Failed to create user", err, logger.Fields{"email": email})
		return err
	}

	s.logger.Info(ctx, "User registered", logger.Fields{"email": email, "user_id": user.ID.String()})
	return nil
}

// Refresh implements the refresh token exchange. The refresh token is returned unchanged.
func (s *authAppServiceImpl) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error) {
	access, err := s.tokens.RefreshAccessToken(ctx, req.RefreshToken)
	s.record("refresh", err)
	if err != nil {
		s.logger.Info(ctx, "Refresh rejected", logger.Fields{"error": err.Error()})
		return nil, err
	}
	return s.tokenResponse(access, req.RefreshToken), nil
}

// Me implements principal introspection
func (s *authAppServiceImpl) Me(ctx context.Context) (*dto.PrincipalResponse, error) {
	p, ok := models.PrincipalFromContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	authorities := make([]string, len(p.Authorities))
	copy(authorities, p.Authorities)
	return &dto.PrincipalResponse{Subject: p.Subject, Authorities: authorities}, nil
}

func (s *authAppServiceImpl) tokenResponse(access, refresh string) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    strings.TrimSpace(constants.BearerPrefix),
		ExpiresIn:    int64(s.tokens.Policy().AccessTokenTTL.Seconds()),
	}
}

func (s *authAppServiceImpl) record(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	s.metrics.RecordAuthAttempt(operation, result)
}
