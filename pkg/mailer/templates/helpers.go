package templates

import (
	"time"
)

// Brand carries the sender-side fields every email shows.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	SupportURL     string
}

// Option pattern
type Option func(*EmailData)

func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }

func WithCode(code string) Option { return func(d *EmailData) { d.Code = code } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills the shared fields from the brand, then applies opts.
func NewBaseEmailData(b Brand, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		AppName:        b.AppName,
		SupportURL:     b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyOTPData(b Brand, name, email, code string, expiresAt time.Time) map[string]any {
	return ToMap(NewBaseEmailData(b, VerifyOTP, name, email, WithCode(code), WithExpiresAt(expiresAt)))
}

func NewPasswordResetData(b Brand, name, email, resetURL string, expiresAt time.Time) map[string]any {
	return ToMap(NewBaseEmailData(b, PasswordReset, name, email, WithResetURL(resetURL), WithExpiresAt(expiresAt)))
}
