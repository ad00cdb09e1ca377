package repositories

import (
	"errors"

	"skillswap/internal/models"
)

// Sentinel errors shared by every UserRepository implementation so callers
// can branch with errors.Is instead of matching message strings.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user data access.
//
// Reads come in two flavours: the default lookups omit the password hash
// from the returned record, and GetByEmailWithPassword includes it. Keeping
// those as separate methods makes the hash's exposure surface visible at
// the call site instead of hiding it behind a projection flag.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByEmailWithPassword(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	// ListExcept returns up to limit users other than the given ID, with
	// the password hash omitted. Used for mentor discovery.
	ListExcept(id string, limit int) ([]models.User, error)
	Update(user *models.User) error
	Delete(id string) error
}
