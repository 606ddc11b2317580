package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/authshop/internal/domain/entity"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup key.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrStaleAccount is returned by conditional writes whose precondition no
	// longer holds (another request changed the row first).
	ErrStaleAccount = errors.New("account changed concurrently")
)

// AccountRepository defines the persistence operations the account service needs.
// Every method is a single statement; conditional writes carry their
// precondition into the WHERE clause.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	// UpdatePassword replaces the password hash of the account.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetOTP binds a new code to an account that is still unverified.
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error

	// MarkVerified flips is_verified and clears the OTP fields, but only if the
	// account is unverified and still holds the given code.
	MarkVerified(ctx context.Context, id, code string) error
}
