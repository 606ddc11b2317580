package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/domain/repository"
)

func seed(t *testing.T, r *AccountRepository, code string) *entity.Account {
	t.Helper()
	a := &entity.Account{
		Email:        "a@x.io",
		PasswordHash: "hash",
		Name:         "A",
		OTPCode:      code,
		OTPExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, r.Create(context.Background(), a))
	return a
}

func TestCreateAssignsIDAndRejectsDuplicates(t *testing.T) {
	r := NewAccountRepository()
	a := seed(t, r, "123456")
	assert.NotEmpty(t, a.ID)

	err := r.Create(context.Background(), &entity.Account{Email: "a@x.io"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	// Email lookup is exact.
	_, err = r.GetByEmail(context.Background(), "A@x.io")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	r := NewAccountRepository()
	a := seed(t, r, "123456")

	got, err := r.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	got.Name = "changed"

	again, err := r.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}

func TestMarkVerifiedRequiresCurrentCode(t *testing.T) {
	ctx := context.Background()
	r := NewAccountRepository()
	a := seed(t, r, "123456")

	require.NoError(t, r.SetOTP(ctx, a.ID, "654321", time.Now().Add(time.Minute)))
	assert.ErrorIs(t, r.MarkVerified(ctx, a.ID, "123456"), repository.ErrStaleAccount)

	require.NoError(t, r.MarkVerified(ctx, a.ID, "654321"))
	got, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.False(t, got.HasPendingOTP())

	assert.ErrorIs(t, r.MarkVerified(ctx, a.ID, ""), repository.ErrStaleAccount)
	assert.ErrorIs(t, r.SetOTP(ctx, a.ID, "111111", time.Now()), repository.ErrStaleAccount)
}

func TestConcurrentVerifyHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	r := NewAccountRepository()
	a := seed(t, r, "123456")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.MarkVerified(ctx, a.ID, "123456") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUpdatePasswordUnknownAccount(t *testing.T) {
	r := NewAccountRepository()
	err := r.UpdatePassword(context.Background(), "nope", "hash")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}
