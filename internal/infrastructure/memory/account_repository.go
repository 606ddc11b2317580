// Package memory holds an in-process account store used by service and
// handler tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/domain/repository"
)

// AccountRepository keeps accounts in a map guarded by a mutex. It honours the
// same conditional-write contract as the postgres implementation.
type AccountRepository struct {
	mu      sync.Mutex
	byID    map[string]*entity.Account
	byEmail map[string]string
	now     func() time.Time
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*entity.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[a.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	now := r.now()
	a.ID = uuid.NewString()
	a.CreatedAt, a.UpdatedAt = now, now

	cp := *a
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) SetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.IsVerified {
		return repository.ErrStaleAccount
	}
	a.OTPCode = code
	a.OTPExpiresAt = expiresAt
	a.UpdatedAt = r.now()
	return nil
}

func (r *AccountRepository) MarkVerified(_ context.Context, id, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.IsVerified || a.OTPCode != code {
		return repository.ErrStaleAccount
	}
	a.IsVerified = true
	a.ClearOTP()
	a.UpdatedAt = r.now()
	return nil
}
