package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/pkg/helpers"
)

// PasswordHasher is the credential hasher used for every password write and check.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenService issues and verifies signed identity tokens.
type TokenService interface {
	Issue(userID string) (string, time.Time, error)
	IssueWithTTL(userID string, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (*helpers.Claims, error)
}

// OTPService generates codes and checks them against an account's bound fields.
type OTPService interface {
	Generate() (string, error)
	Bind(a *entity.Account, code string, ttl time.Duration)
	Consume(a *entity.Account, supplied string) bool
}

// Notifier dispatches outbound messages to the account owner.
type Notifier interface {
	SendOTP(ctx context.Context, to, name, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, to, name, link string, expiresAt time.Time) error
}

// Upload is a profile image received with a registration.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileStore persists uploads and returns a reference stored on the account.
type FileStore interface {
	Save(ctx context.Context, u Upload) (string, error)
	Remove(ctx context.Context, ref string) error
}

// AccountIndexer keeps a searchable copy of account profiles.
type AccountIndexer interface {
	Index(ctx context.Context, p entity.Profile) error
	Search(ctx context.Context, query string, size int) ([]entity.Profile, error)
}
