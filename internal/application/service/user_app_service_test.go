package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service/mocks"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

type userFixture struct {
	accounts *mocks.MockUserAccounts
	verifier *mocks.MockCredentialVerifier
	hasher   *mocks.MockPasswordHasher
	svc      UserAppService
	ctx      context.Context
}

func newUserFixture() *userFixture {
	f := &userFixture{
		accounts: new(mocks.MockUserAccounts),
		verifier: new(mocks.MockCredentialVerifier),
		hasher:   new(mocks.MockPasswordHasher),
	}
	f.svc = NewUserAppService(f.accounts, f.verifier, f.hasher, logger.NewNoopLogger())
	f.ctx = models.WithPrincipal(context.Background(), models.NewPrincipal("alice@example.com", []string{constants.RoleUser}))
	return f
}

func storedAlice() *models.User {
	dob := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)
	return &models.User{
		ID:           uuid.MustParse("8d5e2a8c-4b1f-4c8e-9a2e-3f6f1d2c7b11"),
		FirstName:    "Alice",
		LastName:     "Liddell",
		Email:        "alice@example.com",
		PasswordHash: "stored-hash",
		DateOfBirth:  &dob,
		Enabled:      true,
	}
}

func TestUserAppService_RequiresPrincipal(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	assert.True(t, errors.Is(f.svc.UpdateProfile(ctx, &dto.ProfileUpdateRequest{FirstName: "A"}), errors.ErrUnauthenticated))
	assert.True(t, errors.Is(f.svc.ChangePassword(ctx, &dto.ChangePasswordRequest{NewPassword: "x", ConfirmNewPassword: "x"}), errors.ErrUnauthenticated))
	assert.True(t, errors.Is(f.svc.Deactivate(ctx), errors.ErrUnauthenticated))
	assert.True(t, errors.Is(f.svc.Reactivate(ctx), errors.ErrUnauthenticated))
	f.accounts.AssertNotCalled(t, "FindUserByEmail", mock.Anything, mock.Anything)
}

func TestUserAppService_UpdateProfile(t *testing.T) {
	t.Run("merges only non-blank changed fields", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.accounts.On("SaveProfile", f.ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.FirstName == "Alicia" && u.LastName == "Liddell" && u.DateOfBirth.Day() == 1
		})).Return(nil).Once()

		err := f.svc.UpdateProfile(f.ctx, &dto.ProfileUpdateRequest{FirstName: " Alicia ", LastName: ""})
		require.NoError(t, err)
		f.accounts.AssertExpectations(t)
	})

	t.Run("applies a new date of birth", func(t *testing.T) {
		f := newUserFixture()
		dob := time.Date(1991, 5, 2, 0, 0, 0, 0, time.UTC)
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.accounts.On("SaveProfile", f.ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.DateOfBirth != nil && u.DateOfBirth.Equal(dob)
		})).Return(nil).Once()

		require.NoError(t, f.svc.UpdateProfile(f.ctx, &dto.ProfileUpdateRequest{DateOfBirth: &dob}))
		f.accounts.AssertExpectations(t)
	})

	t.Run("no write when nothing changed", func(t *testing.T) {
		f := newUserFixture()
		same := time.Date(1990, 4, 1, 0, 0, 0, 0, time.UTC)
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)

		err := f.svc.UpdateProfile(f.ctx, &dto.ProfileUpdateRequest{FirstName: "Alice", LastName: "  ", DateOfBirth: &same})
		require.NoError(t, err)
		f.accounts.AssertNotCalled(t, "SaveProfile", mock.Anything, mock.Anything)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.accounts.On("SaveProfile", f.ctx, mock.Anything).Return(errors.ErrDatabase)

		err := f.svc.UpdateProfile(f.ctx, &dto.ProfileUpdateRequest{LastName: "Pleasance"})
		assert.True(t, errors.Is(err, errors.ErrDatabase))
	})
}

func TestUserAppService_ChangePassword(t *testing.T) {
	t.Run("confirmation mismatch is checked first", func(t *testing.T) {
		f := newUserFixture()
		err := f.svc.ChangePassword(f.ctx, &dto.ChangePasswordRequest{
			CurrentPassword: "wrong", NewPassword: "n3w-secret", ConfirmNewPassword: "n3w-secreT",
		})
		assert.True(t, errors.Is(err, errors.ErrChangePasswordMismatch))
		f.accounts.AssertNotCalled(t, "FindUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.verifier.On("Verify", "stored-hash", "wrong").Return(false)

		err := f.svc.ChangePassword(f.ctx, &dto.ChangePasswordRequest{
			CurrentPassword: "wrong", NewPassword: "n3w-secret", ConfirmNewPassword: "n3w-secret",
		})
		assert.True(t, errors.Is(err, errors.ErrInvalidCurrentPassword))
		f.hasher.AssertNotCalled(t, "Hash", mock.Anything)
	})

	t.Run("rehashes and stores", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.verifier.On("Verify", "stored-hash", "old-secret").Return(true)
		f.hasher.On("Hash", "n3w-secret").Return("new-hash", nil)
		f.accounts.On("UpdatePasswordHash", f.ctx, "alice@example.com", "new-hash").Return(nil).Once()

		err := f.svc.ChangePassword(f.ctx, &dto.ChangePasswordRequest{
			CurrentPassword: "old-secret", NewPassword: "n3w-secret", ConfirmNewPassword: "n3w-secret",
		})
		require.NoError(t, err)
		f.accounts.AssertExpectations(t)
	})

	t.Run("hash failure is internal", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.verifier.On("Verify", "stored-hash", "old-secret").Return(true)
		f.hasher.On("Hash", "n3w-secret").Return("", stderrors.New("boom"))

		err := f.svc.ChangePassword(f.ctx, &dto.ChangePasswordRequest{
			CurrentPassword: "old-secret", NewPassword: "n3w-secret", ConfirmNewPassword: "n3w-secret",
		})
		assert.True(t, errors.Is(err, errors.ErrInternalServer))
		f.accounts.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserAppService_DeactivateReactivate(t *testing.T) {
	t.Run("deactivate enabled account", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)
		f.accounts.On("SetEnabled", f.ctx, "alice@example.com", false).Return(nil).Once()

		require.NoError(t, f.svc.Deactivate(f.ctx))
		f.accounts.AssertExpectations(t)
	})

	t.Run("deactivate twice", func(t *testing.T) {
		f := newUserFixture()
		u := storedAlice()
		u.Enabled = false
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(u, nil)

		assert.True(t, errors.Is(f.svc.Deactivate(f.ctx), errors.ErrAccountAlreadyDeactivated))
		f.accounts.AssertNotCalled(t, "SetEnabled", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reactivate disabled account", func(t *testing.T) {
		f := newUserFixture()
		u := storedAlice()
		u.Enabled = false
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(u, nil)
		f.accounts.On("SetEnabled", f.ctx, "alice@example.com", true).Return(nil).Once()

		require.NoError(t, f.svc.Reactivate(f.ctx))
		f.accounts.AssertExpectations(t)
	})

	t.Run("reactivate active account", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(storedAlice(), nil)

		assert.True(t, errors.Is(f.svc.Reactivate(f.ctx), errors.ErrAccountAlreadyActive))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newUserFixture()
		f.accounts.On("FindUserByEmail", f.ctx, "alice@example.com").Return(nil, errors.ErrUserNotFound)

		assert.True(t, errors.Is(f.svc.Deactivate(f.ctx), errors.ErrUserNotFound))
	})
}
