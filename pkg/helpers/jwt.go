package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when a token is well-formed and signed by us but past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// JWTManager issues and verifies HS256 identity tokens. The same key signs
// session tokens and password-reset tokens; only the TTL differs.
type JWTManager struct {
	Secret     []byte
	SessionTTL time.Duration

	// Now is the clock used for issuing and validating; nil means time.Now.
	Now func() time.Time
}

func NewJWTManager(secret string, sessionTTL time.Duration) *JWTManager {
	return &JWTManager{Secret: []byte(secret), SessionTTL: sessionTTL}
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (m *JWTManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue signs a session token for the account using the default TTL.
func (m *JWTManager) Issue(userID string) (string, time.Time, error) {
	return m.IssueWithTTL(userID, m.SessionTTL)
}

// IssueWithTTL signs a token for the account that expires after ttl.
func (m *JWTManager) IssueWithTTL(userID string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Verify parses the token and returns its claims. The error is always
// ErrTokenExpired or ErrTokenInvalid so callers never see parser internals.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tkn.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
