package service

import (
	"context"
	"strings"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/internal/domain/models"
	domainService "github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

// UserAppService defines the self-service operations of an authenticated user.
// Every operation acts on the principal attached to ctx.
type UserAppService interface {
	// UpdateProfile merges the non-blank fields of req into the stored profile
	UpdateProfile(ctx context.Context, req *dto.ProfileUpdateRequest) error

	// ChangePassword replaces the password after checking the current one
	ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error

	// Deactivate disables the account so it can no longer log in
	Deactivate(ctx context.Context) error

	// Reactivate enables a previously deactivated account
	Reactivate(ctx context.Context) error
}

type userAppServiceImpl struct {
	accounts domainService.UserAccounts
	verifier domainService.CredentialVerifier
	hasher   domainService.PasswordHasher
	logger   logger.Logger
}

// NewUserAppService creates a new instance of UserAppService
func NewUserAppService(
	accounts domainService.UserAccounts,
	verifier domainService.CredentialVerifier,
	hasher domainService.PasswordHasher,
	log logger.Logger,
) UserAppService {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &userAppServiceImpl{accounts: accounts, verifier: verifier, hasher: hasher, logger: log}
}

// UpdateProfile implements profile merging; nothing is written when no field changes
func (s *userAppServiceImpl) UpdateProfile(ctx context.Context, req *dto.ProfileUpdateRequest) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	changed := false
	if v := strings.TrimSpace(req.FirstName); v != "" && v != user.FirstName {
		user.FirstName = v
		changed = true
	}
	if v := strings.TrimSpace(req.LastName); v != "" && v != user.LastName {
		user.LastName = v
		changed = true
	}
	if req.DateOfBirth != nil && (user.DateOfBirth == nil || !req.DateOfBirth.Equal(*user.DateOfBirth)) {
		dob := *req.DateOfBirth
		user.DateOfBirth = &dob
		changed = true
	}
	if !changed {
		return nil
	}

	if err := s.accounts.SaveProfile(ctx, user); err != nil {
		s.logger.Error(ctx, "Failed to save profile", err, logger.Fields{"email": user.Email})
		return err
	}
	s.logger.Info(ctx, "Profile updated", logger.Fields{"email": user.Email})
	return nil
}

// ChangePassword implements the password change
func (s *userAppServiceImpl) ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error {
	// The confirmation is checked before touching the store
	if req.NewPassword != req.ConfirmNewPassword {
		return errors.ErrChangePasswordMismatch
	}

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if !s.verifier.Verify(user.PasswordHash, req.CurrentPassword) {
		s.logger.Info(ctx, "Password change rejected: wrong current password", logger.Fields{"email": user.Email})
		return errors.ErrInvalidCurrentPassword
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		s.logger.Error(ctx, "Failed to hash password", err)
		return errors.ErrInternalServer.WithError(err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, user.Email, hash); err != nil {
		s.logger.Error(ctx, "Failed to update password", err, logger.Fields{"email": user.Email})
		return err
	}
	s.logger.Info(ctx, "Password changed", logger.Fields{"email": user.Email})
	return nil
}

// Deactivate implements account deactivation
func (s *userAppServiceImpl) Deactivate(ctx context.Context) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if !user.Enabled {
		return errors.ErrAccountAlreadyDeactivated
	}
	return s.setEnabled(ctx, user.Email, false)
}

// Reactivate implements account reactivation
func (s *userAppServiceImpl) Reactivate(ctx context.Context) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if user.Enabled {
		return errors.ErrAccountAlreadyActive
	}
	return s.setEnabled(ctx, user.Email, true)
}

func (s *userAppServiceImpl) setEnabled(ctx context.Context, email string, enabled bool) error {
	if err := s.accounts.SetEnabled(ctx, email, enabled); err != nil {
		s.logger.Error(ctx, "Failed to update account status", err, logger.Fields{"email": email})
		return err
	}
	s.logger.Info(ctx, "Account status changed", logger.Fields{"email": email, "enabled": enabled})
	return nil
}

// currentUser loads the stored account of the principal on ctx
func (s *userAppServiceImpl) currentUser(ctx context.Context) (*models.User, error) {
	p, ok := models.PrincipalFromContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	user, err := s.accounts.FindUserByEmail(ctx, p.Subject)
	if err != nil {
		if !errors.Is(err, errors.ErrUserNotFound) {
			s.logger.Error(ctx, "Failed to look up user", err, logger.Fields{"email": p.Subject})
		}
		return nil, err
	}
	return user, nil
}
