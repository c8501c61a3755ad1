package crypto

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/errors"
)

var (
	_ service.PasswordHasher     = (*BcryptHasher)(nil)
	_ service.CredentialVerifier = (*BcryptHasher)(nil)
)

// BcryptHasher hashes and verifies passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", errors.ErrInvalidRequest.WithMessage("password cannot be hashed").WithError(err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash.
func (h *BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
