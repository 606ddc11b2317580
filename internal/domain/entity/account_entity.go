package entity

import (
	"time"
)

// Account is the aggregate root for the credential lifecycle.
// PasswordHash always holds a bcrypt digest; OTPCode is empty unless a
// verification cycle is pending.
type Account struct {
	ID               string
	Email            string
	PasswordHash     string
	Name             string
	ProfileImagePath string
	IsVerified       bool
	OTPCode          string
	OTPExpiresAt     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasPendingOTP reports whether a code is currently bound to the account.
func (a *Account) HasPendingOTP() bool {
	return a.OTPCode != ""
}

// ClearOTP drops the bound code and its expiry.
func (a *Account) ClearOTP() {
	a.OTPCode = ""
	a.OTPExpiresAt = time.Time{}
}

// Profile returns the account identity without credential fields.
func (a *Account) Profile() Profile {
	return Profile{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		ProfileImagePath: a.ProfileImagePath,
		IsVerified:       a.IsVerified,
	}
}

// Profile is what handlers and the auth middleware are allowed to see.
type Profile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	ProfileImagePath string `json:"profile_image"`
	IsVerified       bool   `json:"is_verified"`
}
