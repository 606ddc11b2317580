package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/authshop/internal/domain/entity"
	"github.com/oksasatya/authshop/internal/domain/repository"
	"github.com/oksasatya/authshop/pkg/helpers"
	"github.com/oksasatya/authshop/pkg/validation"
)

// Settings carries the lifetimes and links the service needs from config.
type Settings struct {
	RegisterOTPTTL   time.Duration
	ResendOTPTTL     time.Duration
	ResetTokenTTL    time.Duration
	ResetPasswordURL string
}

// Service implements the account lifecycle: registration, email
// verification, sessions and password changes.
type Service struct {
	Repo     repository.AccountRepository
	Hasher   PasswordHasher
	Tokens   TokenService
	OTP      OTPService
	Notifier Notifier
	Logger   *logrus.Logger
	Settings Settings

	// Optional collaborators; nil disables the feature.
	Files FileStore
	Index AccountIndexer
}

func NewService(
	repo repository.AccountRepository,
	hasher PasswordHasher,
	tokens TokenService,
	otp OTPService,
	notifier Notifier,
	logger *logrus.Logger,
	settings Settings,
) *Service {
	return &Service{
		Repo:     repo,
		Hasher:   hasher,
		Tokens:   tokens,
		OTP:      otp,
		Notifier: notifier,
		Logger:   logger,
		Settings: settings,
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	ProfileImage    *Upload
}

type RegisterResult struct {
	AccountID    string
	ProfileImage string
}

type LoginResult struct {
	Profile   entity.Profile
	Token     string
	ExpiresAt time.Time
}

// Register creates an unverified account and sends it a verification code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	defer func() { observe("register", err) }()

	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, newError(KindValidation, "All fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, newError(KindValidation, "Passwords do not match")
	}
	if !validation.PasswordFits(in.Password) {
		return nil, errPasswordTooLong()
	}

	_, err = s.Repo.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, newError(KindConflict, "Email already registered")
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, s.internal("register", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal("register", err)
	}
	code, err := s.OTP.Generate()
	if err != nil {
		return nil, s.internal("register", err)
	}

	a := &entity.Account{Name: in.Name, Email: in.Email, PasswordHash: hash}
	s.OTP.Bind(a, code, s.Settings.RegisterOTPTTL)

	if in.ProfileImage != nil {
		if s.Files == nil {
			s.logger().Warn("profile image ignored: no file store configured")
		} else {
			ref, serr := s.Files.Save(ctx, *in.ProfileImage)
			if serr != nil {
				return nil, s.internal("register", serr)
			}
			a.ProfileImagePath = ref
		}
	}

	if err = s.Repo.Create(ctx, a); err != nil {
		s.discardUpload(ctx, a.ProfileImagePath)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, newError(KindConflict, "Email already registered")
		}
		return nil, s.internal("register", err)
	}

	// The account exists at this point; a failed dispatch is recoverable via resend.
	if nerr := s.Notifier.SendOTP(ctx, a.Email, a.Name, code, a.OTPExpiresAt); nerr != nil {
		s.logger().WithError(nerr).WithField("account_id", a.ID).Warn("failed to dispatch registration otp")
	}
	s.index(ctx, a)

	return &RegisterResult{AccountID: a.ID, ProfileImage: a.ProfileImagePath}, nil
}

// VerifyOTP consumes the pending code and marks the account verified.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (err error) {
	defer func() { observe("verify_otp", err) }()

	if email == "" || code == "" {
		return newError(KindValidation, "Email and OTP are required")
	}
	a, err := s.lookupEmail(ctx, "verify_otp", email, "User not found")
	if err != nil {
		return err
	}
	if a.IsVerified {
		return newError(KindConflict, "User already verified")
	}
	if !s.OTP.Consume(a, code) {
		return newError(KindValidation, "Invalid or expired OTP")
	}

	if err = s.Repo.MarkVerified(ctx, a.ID, a.OTPCode); err != nil {
		if errors.Is(err, repository.ErrStaleAccount) {
			return s.staleVerification(ctx, "verify_otp", a.ID)
		}
		return s.internal("verify_otp", err)
	}
	a.IsVerified = true
	a.ClearOTP()
	s.index(ctx, a)
	return nil
}

// ResendOTP replaces the pending code of an unverified account.
func (s *Service) ResendOTP(ctx context.Context, email string) (err error) {
	defer func() { observe("resend_otp", err) }()

	if email == "" {
		return newError(KindValidation, "Email is required")
	}
	a, err := s.lookupEmail(ctx, "resend_otp", email, "User not found")
	if err != nil {
		return err
	}
	if a.IsVerified {
		return newError(KindConflict, "User already verified")
	}

	code, err := s.OTP.Generate()
	if err != nil {
		return s.internal("resend_otp", err)
	}
	s.OTP.Bind(a, code, s.Settings.ResendOTPTTL)
	if err = s.Repo.SetOTP(ctx, a.ID, a.OTPCode, a.OTPExpiresAt); err != nil {
		if errors.Is(err, repository.ErrStaleAccount) {
			return newError(KindConflict, "User already verified")
		}
		return s.internal("resend_otp", err)
	}
	if err = s.Notifier.SendOTP(ctx, a.Email, a.Name, code, a.OTPExpiresAt); err != nil {
		return s.internal("resend_otp", err)
	}
	return nil
}

// Login checks credentials of a verified account and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { observe("login", err) }()

	if email == "" || password == "" {
		return nil, newError(KindValidation, "Email and password are required")
	}
	a, err := s.lookupEmail(ctx, "login", email, "User not registered")
	if err != nil {
		return nil, err
	}
	if !a.IsVerified {
		return nil, newError(KindForbidden, "Please verify your email before login")
	}
	if !s.Hasher.Verify(password, a.PasswordHash) {
		return nil, newError(KindUnauthorized, "Invalid credentials")
	}

	tok, exp, err := s.Tokens.Issue(a.ID)
	if err != nil {
		return nil, s.internal("login", err)
	}
	return &LoginResult{Profile: a.Profile(), Token: tok, ExpiresAt: exp}, nil
}

// ChangePassword sets a new password for an already authenticated account.
func (s *Service) ChangePassword(ctx context.Context, accountID, password, confirm string) (err error) {
	defer func() { observe("change_password", err) }()

	if err = checkNewPassword(password, confirm); err != nil {
		return err
	}
	return s.storePassword(ctx, "change_password", accountID, password)
}

// ChangePasswordByEmail sets a new password after checking the old one.
func (s *Service) ChangePasswordByEmail(ctx context.Context, email, oldPassword, newPassword string) (err error) {
	defer func() { observe("change_password_by_email", err) }()

	if email == "" || oldPassword == "" || newPassword == "" {
		return newError(KindValidation, "All fields are required")
	}
	if !validation.PasswordFits(newPassword) {
		return errPasswordTooLong()
	}
	a, err := s.lookupEmail(ctx, "change_password_by_email", email, "User not found")
	if err != nil {
		return err
	}
	if !s.Hasher.Verify(oldPassword, a.PasswordHash) {
		return newError(KindUnauthorized, "Old password is incorrect")
	}
	return s.storePassword(ctx, "change_password_by_email", a.ID, newPassword)
}

// ResetPasswordDirect overwrites the password of the account owning email.
// It performs no proof of ownership.
func (s *Service) ResetPasswordDirect(ctx context.Context, email, password, confirm string) (err error) {
	defer func() { observe("reset_password_direct", err) }()

	if email == "" {
		return newError(KindValidation, "All fields are required")
	}
	if err = checkNewPassword(password, confirm); err != nil {
		return err
	}
	a, err := s.lookupEmail(ctx, "reset_password_direct", email, "User not found")
	if err != nil {
		return err
	}
	if err = s.storePassword(ctx, "reset_password_direct", a.ID, password); err != nil {
		return err
	}
	s.logger().WithField("account_id", a.ID).Info("password reset without token")
	return nil
}

// SendResetEmail issues a short-lived reset token and mails the link.
func (s *Service) SendResetEmail(ctx context.Context, email string) (err error) {
	defer func() { observe("send_reset_email", err) }()

	if email == "" {
		return newError(KindValidation, "Email is required")
	}
	a, err := s.lookupEmail(ctx, "send_reset_email", email, "Email does not exist")
	if err != nil {
		return err
	}
	tok, exp, err := s.Tokens.IssueWithTTL(a.ID, s.Settings.ResetTokenTTL)
	if err != nil {
		return s.internal("send_reset_email", err)
	}
	link := strings.TrimRight(s.Settings.ResetPasswordURL, "/") + "/" + a.ID + "/" + tok
	if err = s.Notifier.SendPasswordReset(ctx, a.Email, a.Name, link, exp); err != nil {
		return s.internal("send_reset_email", err)
	}
	return nil
}

// ResetPasswordByToken sets a new password when token was issued for id.
func (s *Service) ResetPasswordByToken(ctx context.Context, id, token, password, confirm string) (err error) {
	defer func() { observe("reset_password_by_token", err) }()

	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return newError(KindNotFound, "User not found")
		}
		return s.internal("reset_password_by_token", err)
	}

	claims, err := s.Tokens.Verify(token)
	if err != nil {
		if errors.Is(err, helpers.ErrTokenExpired) {
			return newError(KindUnauthorized, "Reset link has expired")
		}
		return newError(KindUnauthorized, "Invalid or expired token")
	}
	if claims.UserID != a.ID {
		return newError(KindUnauthorized, "Invalid or expired token")
	}

	if err = checkNewPassword(password, confirm); err != nil {
		return err
	}
	return s.storePassword(ctx, "reset_password_by_token", a.ID, password)
}

// CheckEmail returns the public profile of the account owning email.
func (s *Service) CheckEmail(ctx context.Context, email string) (p entity.Profile, err error) {
	defer func() { observe("check_email", err) }()

	if email == "" {
		return entity.Profile{}, newError(KindValidation, "Email is required")
	}
	a, err := s.lookupEmail(ctx, "check_email", email, "Email not found")
	if err != nil {
		return entity.Profile{}, err
	}
	return a.Profile(), nil
}

// ResolveToken verifies a session token and loads the account it names.
// Every failure is reported as KindUnauthorized except storage errors.
func (s *Service) ResolveToken(ctx context.Context, token string) (p entity.Profile, err error) {
	defer func() { observe("resolve_token", err) }()

	if token == "" {
		return entity.Profile{}, newError(KindUnauthorized, "No token, authorization denied")
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return entity.Profile{}, &Error{Kind: KindUnauthorized, Message: "Not authorized, token failed", Err: err}
	}
	a, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return entity.Profile{}, newError(KindUnauthorized, "User not found")
		}
		return entity.Profile{}, s.internal("resolve_token", err)
	}
	return a.Profile(), nil
}

// CurrentAccount reloads the profile of an authenticated account.
func (s *Service) CurrentAccount(ctx context.Context, id string) (entity.Profile, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return entity.Profile{}, newError(KindNotFound, "User not found")
		}
		return entity.Profile{}, s.internal("current_account", err)
	}
	return a.Profile(), nil
}

// SearchAccounts runs a full-text query over indexed profiles.
func (s *Service) SearchAccounts(ctx context.Context, query string, size int) ([]entity.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newError(KindValidation, "Query is required")
	}
	if s.Index == nil {
		return []entity.Profile{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	res, err := s.Index.Search(ctx, query, size)
	if err != nil {
		return nil, s.internal("search_accounts", err)
	}
	return res, nil
}

func checkNewPassword(password, confirm string) error {
	if password == "" || confirm == "" {
		return newError(KindValidation, "All fields are required")
	}
	if password != confirm {
		return newError(KindValidation, "Passwords do not match")
	}
	if !validation.PasswordFits(password) {
		return errPasswordTooLong()
	}
	return nil
}

func errPasswordTooLong() error {
	return newError(KindValidation, fmt.Sprintf("Password must be at most %d bytes", validation.MaxPasswordBytes))
}

func (s *Service) storePassword(ctx context.Context, op, id, password string) error {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return s.internal(op, err)
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return newError(KindNotFound, "User not found")
		}
		return s.internal(op, err)
	}
	return nil
}

func (s *Service) lookupEmail(ctx context.Context, op, email, notFound string) (*entity.Account, error) {
	a, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newError(KindNotFound, notFound)
		}
		return nil, s.internal(op, err)
	}
	return a, nil
}

// staleVerification explains why a conditional verify write matched no row.
func (s *Service) staleVerification(ctx context.Context, op, id string) error {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return s.internal(op, err)
	}
	if a.IsVerified {
		return newError(KindConflict, "User already verified")
	}
	return newError(KindValidation, "Invalid or expired OTP")
}

func (s *Service) discardUpload(ctx context.Context, ref string) {
	if ref == "" || s.Files == nil {
		return
	}
	if err := s.Files.Remove(ctx, ref); err != nil {
		s.logger().WithError(err).WithField("ref", ref).Warn("failed to remove orphaned upload")
	}
}

func (s *Service) index(ctx context.Context, a *entity.Account) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, a.Profile()); err != nil {
		s.logger().WithError(err).WithField("account_id", a.ID).Warn("failed to index account")
	}
}

func (s *Service) internal(op string, err error) *Error {
	e := errInternal(op, err)
	s.logger().WithError(e.Err).WithField("operation", op).Error("account operation failed")
	return e
}

var fallbackLogger = logrus.New()

func (s *Service) logger() *logrus.Logger {
	if s.Logger == nil {
		return fallbackLogger
	}
	return s.Logger
}
