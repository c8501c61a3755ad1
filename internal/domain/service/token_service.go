package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/pkg/errors"
)

const tracerName = "github.com/turtacn/tokengate/internal/domain/service"

// TokenService defines the token policy: issuing, validating and refreshing
// bearer tokens. Validity is a pure function of the signature, the claims and
// the clock; nothing is stored.
// TokenService 定义令牌策略：签发、校验与刷新。有效性仅取决于签名、声明与时钟。
type TokenService interface {
	// GenerateAccessToken issues a short-lived access token for subject.
	// iat and exp are encoded as whole seconds, truncating the clock, so a token
	// issued at a fractional second expires up to one second before issue+TTL.
	GenerateAccessToken(ctx context.Context, subject string) (string, error)

	// GenerateRefreshToken issues a long-lived refresh token for subject.
	// The same whole-second truncation applies.
	GenerateRefreshToken(ctx context.Context, subject string) (string, error)

	// ParseToken verifies token and returns its claims. The error is nil,
	// errors.ErrInvalidToken, or errors.ErrTokenExpired (claims are returned too).
	ParseToken(ctx context.Context, token string) (*models.TokenClaims, error)

	// IsTokenValid reports whether token is correctly signed, belongs to
	// expectedSubject and is not expired. A bad signature is an error.
	IsTokenValid(ctx context.Context, token, expectedSubject string) (bool, error)

	// ExtractSubject returns the sub claim of a correctly signed token, expired or not.
	ExtractSubject(ctx context.Context, token string) (string, error)

	// RefreshAccessToken exchanges a valid refresh token for a new access token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)

	// Policy returns the configured token lifetimes.
	Policy() TokenPolicy
}

// TokenPolicy holds the lifetimes of issued tokens.
type TokenPolicy struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*tokenService)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *tokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m TokenMetrics) TokenServiceOption {
	return func(s *tokenService) {
		if m != nil {
			s.metrics = m
		}
	}
}

var _ TokenService = (*tokenService)(nil)

type tokenService struct {
	codec   TokenCodec
	policy  TokenPolicy
	now     func() time.Time
	metrics TokenMetrics
	tracer  trace.Tracer
}

// NewTokenService creates a TokenService signing through codec.
func NewTokenService(codec TokenCodec, policy TokenPolicy, opts ...TokenServiceOption) TokenService {
	s := &tokenService{
		codec:   codec,
		policy:  policy,
		now:     time.Now,
		metrics: NewNoopTokenMetrics(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *tokenService) Policy() TokenPolicy {
	return s.policy
}

func (s *tokenService) GenerateAccessToken(ctx context.Context, subject string) (string, error) {
	return s.generate(ctx, subject, models.TokenTypeAccess, s.policy.AccessTokenTTL)
}

func (s *tokenService) GenerateRefreshToken(ctx context.Context, subject string) (string, error) {
	return s.generate(ctx, subject, models.TokenTypeRefresh, s.policy.RefreshTokenTTL)
}

func (s *tokenService) generate(ctx context.Context, subject string, tokenType models.TokenType, ttl time.Duration) (string, error) {
	_, span := s.tracer.Start(ctx, "TokenService.Generate", trace.WithAttributes(
		attribute.String("token.type", tokenType.String()),
	))
	defer span.End()

	if subject == "" {
		err := errors.ErrInvalidRequest.WithMessage("token subject must not be empty")
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	token, err := s.codec.Sign(models.NewTokenClaims(subject, tokenType, s.now(), ttl))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign failed")
		return "", err
	}
	s.metrics.RecordTokenIssued(tokenType.String())
	return token, nil
}

func (s *tokenService) ParseToken(ctx context.Context, token string) (*models.TokenClaims, error) {
	return s.parse(token)
}

// parse folds the service clock into the codec result, so an expiry observed by
// either side is reported as errors.ErrTokenExpired.
func (s *tokenService) parse(token string) (*models.TokenClaims, error) {
	claims, err := s.codec.Parse(token)
	switch {
	case err == nil:
		if claims == nil {
			return nil, errors.ErrInvalidToken
		}
		if claims.IsExpiredAt(s.now()) {
			return claims, errors.ErrTokenExpired
		}
		return claims, nil
	case errors.Is(err, errors.ErrTokenExpired) && claims != nil:
		return claims, err
	case errors.Is(err, errors.ErrInvalidToken):
		return nil, err
	default:
		return nil, errors.ErrInvalidToken.WithError(err)
	}
}

func (s *tokenService) IsTokenValid(ctx context.Context, token, expectedSubject string) (bool, error) {
	_, span := s.tracer.Start(ctx, "TokenService.IsTokenValid")
	defer span.End()

	claims, err := s.parse(token)
	if err != nil {
		if errors.Is(err, errors.ErrTokenExpired) {
			s.record(span, OutcomeExpired)
			return false, nil
		}
		s.record(span, OutcomeInvalid)
		return false, err
	}
	if claims.Subject != expectedSubject {
		s.record(span, OutcomeSubjectMismatch)
		return false, nil
	}
	s.record(span, OutcomeValid)
	return true, nil
}

func (s *tokenService) record(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("token.validation", outcome))
	s.metrics.RecordTokenValidation(outcome)
}

func (s *tokenService) ExtractSubject(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil && !errors.Is(err, errors.ErrTokenExpired) {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.ErrInvalidToken.WithMessage("token has no subject")
	}
	return claims.Subject, nil
}

func (s *tokenService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "TokenService.RefreshAccessToken")
	defer span.End()

	claims, err := s.parse(refreshToken)
	if err != nil && !errors.Is(err, errors.ErrTokenExpired) {
		return "", s.refreshFailed(span, OutcomeInvalid, err)
	}
	if !claims.IsRefreshToken() {
		return "", s.refreshFailed(span, OutcomeWrongType, errors.ErrWrongTokenType)
	}
	if err != nil {
		return "", s.refreshFailed(span, OutcomeExpired, err)
	}

	access, err := s.GenerateAccessToken(ctx, claims.Subject)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	s.metrics.RecordTokenRefresh(OutcomeSuccess)
	return access, nil
}

func (s *tokenService) refreshFailed(span trace.Span, outcome string, err error) error {
	span.SetStatus(codes.Error, outcome)
	s.metrics.RecordTokenRefresh(outcome)
	return err
}
