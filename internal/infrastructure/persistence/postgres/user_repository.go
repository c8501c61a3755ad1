package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/tokengate/internal/domain/models"
	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

var (
	_ service.UserLookup    = (*UserRepository)(nil)
	_ service.UserRegistrar = (*UserRepository)(nil)
	_ service.UserAccounts  = (*UserRepository)(nil)
)

// UserRepository implements the user lookup and registration collaborators with gorm.
type UserRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewUserRepository creates a new gorm-based user repository instance.
func NewUserRepository(db *gorm.DB, log logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

// FindByEmail returns the credentials of the user registered with email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.UserCredentials, error) {
	user, err := r.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return user.Credentials(), nil
}

// FindUserByEmail retrieves a user and its roles by email.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Debug(ctx, "User not found", logger.Fields{"email": email})
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error(ctx, "Failed to retrieve user by email", err, logger.Fields{"email": email})
		return nil, errors.ErrDatabase.WithError(err)
	}
	return &user, nil
}

// ExistsByEmail reports whether an account uses email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", normalizeEmail(email))
}

// ExistsByPhoneNumber reports whether an account uses phone.
func (r *UserRepository) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number = ?", strings.TrimSpace(phone))
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where(query, arg).Count(&count).Error; err != nil {
		r.logger.Error(ctx, "Failed to count users", err)
		return false, errors.ErrDatabase.WithError(err)
	}
	return count > 0, nil
}

// FindRoleByName retrieves a role by its name.
func (r *UserRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoleNotFound.WithDetail("role", name)
		}
		return nil, errors.ErrDatabase.WithError(err)
	}
	return &role, nil
}

// Create persists user together with its role associations.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	start := time.Now()
	user.Email = normalizeEmail(user.Email)
	user.PhoneNumber = strings.TrimSpace(user.PhoneNumber)

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrEmailAlreadyExists.WithMessage("An account with this email or phone number already exists").WithError(err)
		}
		r.logger.Error(ctx, "Failed to create user", err, logger.Fields{"email": user.Email})
		return errors.ErrDatabase.WithError(err)
	}

	r.logger.Info(ctx, "User created successfully", logger.Fields{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"latency_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// AssignRole grants the named role to the user registered with email.
func (r *UserRepository) AssignRole(ctx context.Context, email, roleName string) error {
	user, err := r.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	role, err := r.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(user).Association("Roles").Append(role); err != nil {
		r.logger.Error(ctx, "Failed to assign role", err, logger.Fields{"email": email, "role": roleName})
		return errors.ErrDatabase.WithError(err)
	}
	return nil
}

// SetAccountStatus updates the enabled and locked flags of a user.
func (r *UserRepository) SetAccountStatus(ctx context.Context, email string, enabled, locked bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", normalizeEmail(email)).
		Updates(map[string]interface{}{"enabled": enabled, "locked": locked})
	if result.Error != nil {
		return errors.ErrDatabase.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

// SaveProfile writes the profile columns of user, including cleared values.
func (r *UserRepository) SaveProfile(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"date_of_birth": user.DateOfBirth,
		})
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to save profile", result.Error, logger.Fields{"email": user.Email})
		return errors.ErrDatabase.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash of the user registered with email.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	return r.updateColumn(ctx, email, "password_hash", hash)
}

// SetEnabled updates the enabled flag and leaves the lock untouched.
func (r *UserRepository) SetEnabled(ctx context.Context, email string, enabled bool) error {
	return r.updateColumn(ctx, email, "enabled", enabled)
}

func (r *UserRepository) updateColumn(ctx context.Context, email, column string, value interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", normalizeEmail(email)).
		Update(column, value)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update user", result.Error, logger.Fields{"email": email, "column": column})
		return errors.ErrDatabase.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
