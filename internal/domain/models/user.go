package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/tokengate/pkg/constants"
	"gorm.io/gorm"
)

// User is a registered account. Its email is the token subject.
// User 是已注册的账户，其邮箱即令牌主体。
type User struct {
	// ID is the primary key.
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	FirstName string `json:"first_name" gorm:"size:100;not null"`
	LastName  string `json:"last_name" gorm:"size:100;not null"`

	// Email identifies the user at login and becomes the sub claim of issued tokens.
	// Email 用于登录标识用户，并作为颁发令牌的 sub 声明。
	Email string `json:"email" gorm:"size:255;uniqueIndex;not null"`

	PhoneNumber string `json:"phone_number" gorm:"size:32;uniqueIndex;not null"`

	// PasswordHash is the bcrypt hash of the password. Never serialized.
	// PasswordHash 是密码的 bcrypt 哈希，从不序列化。
	PasswordHash string `json:"-" gorm:"size:255;not null"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`

	// Enabled and Locked gate login independently of credential checks.
	// Enabled 与 Locked 独立于凭证校验控制登录。
	Enabled bool `json:"enabled" gorm:"not null"`
	Locked  bool `json:"locked" gorm:"not null"`

	Roles []Role `json:"roles" gorm:"many2many:users_roles;"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID to users created without one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Authorities returns the names of the user's roles.
func (u *User) Authorities() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Credentials returns the view of the user consumed by authentication.
func (u *User) Credentials() *UserCredentials {
	return &UserCredentials{
		Subject:      u.Email,
		PasswordHash: u.PasswordHash,
		Authorities:  u.Authorities(),
		Enabled:      u.Enabled,
		Locked:       u.Locked,
	}
}

// Role is a named authority granted to users.
// Role 是授予用户的具名权限。
type Role struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"size:64;uniqueIndex;not null"`
}

// BeforeCreate assigns a random ID to roles created without one.
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// DefaultRoles are seeded into an empty store.
var DefaultRoles = []string{constants.RoleUser, constants.RoleAdmin}

// UserCredentials is what the user-lookup collaborator hands to the core:
// the subject, the stored hash and the granted authorities.
type UserCredentials struct {
	Subject      string
	PasswordHash string
	Authorities  []string
	Enabled      bool
	Locked       bool
}

// CanAuthenticate reports whether the account is allowed to log in.
func (c *UserCredentials) CanAuthenticate() bool {
	return c.Enabled && !c.Locked
}
