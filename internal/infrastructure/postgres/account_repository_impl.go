package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/domain/repository"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, email, password_hash, name, profile_image, is_verified,
		otp_code, otp_expires_at, created_at, updated_at`

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, profile_image, is_verified, otp_code, otp_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, a.Email, a.PasswordHash, a.Name, a.ProfileImagePath, a.IsVerified, nullText(a.OTPCode), nullTime(a.OTPExpiresAt))

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return oops.With("operation", "insert account").Wrap(err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrAccountNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row, "get account by id")
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row, "get account by email")
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrAccountNotFound
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return oops.With("operation", "update password").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET otp_code = $2, otp_expires_at = $3, updated_at = NOW()
		WHERE id = $1 AND is_verified = FALSE
	`, id, code, expiresAt)
	if err != nil {
		return oops.With("operation", "set otp").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrStaleAccount
	}
	return nil
}

func (r *AccountRepository) MarkVerified(ctx context.Context, id, code string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET is_verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_verified = FALSE AND otp_code = $2
	`, id, code)
	if err != nil {
		return oops.With("operation", "mark verified").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrStaleAccount
	}
	return nil
}

func scanAccount(row pgx.Row, op string) (*entity.Account, error) {
	a := &entity.Account{}
	var code pgtype.Text
	var expires pgtype.Timestamptz
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.ProfileImagePath, &a.IsVerified,
		&code, &expires, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, oops.With("operation", op).Wrap(err)
	}
	if code.Valid {
		a.OTPCode = code.String
	}
	if expires.Valid {
		a.OTPExpiresAt = expires.Time
	}
	return a, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func nullTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
