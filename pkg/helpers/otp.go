package helpers

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/oksasatya/authshop/internal/domain/entity"
)

// OTPDigits is the width of generated codes.
const OTPDigits = 6

// OTPService generates numeric one-time codes and checks them against the
// fields bound on an Account. It never touches storage.
type OTPService struct {
	Digits int
	Now    func() time.Time
}

func NewOTPService() *OTPService {
	return &OTPService{Digits: OTPDigits}
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Generate returns a zero-padded numeric code drawn uniformly from crypto/rand.
func (s *OTPService) Generate() (string, error) {
	digits := s.Digits
	if digits <= 0 {
		digits = OTPDigits
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Bind sets the code and its expiry on the account, replacing any previous code.
func (s *OTPService) Bind(a *entity.Account, code string, ttl time.Duration) {
	a.OTPCode = code
	a.OTPExpiresAt = s.now().Add(ttl)
}

// Consume reports whether supplied matches the bound code and the code has not expired.
// The caller is responsible for clearing the fields on success.
func (s *OTPService) Consume(a *entity.Account, supplied string) bool {
	if a.OTPCode == "" || supplied == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(a.OTPCode), []byte(supplied)) != 1 {
		return false
	}
	return s.now().Before(a.OTPExpiresAt)
}
