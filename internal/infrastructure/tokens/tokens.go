package tokens

import (
	"errors"
	"fmt"
	"time"

	"docvault/internal/domain"
	"docvault/internal/util"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose scopes a token to one use. A token issued for one purpose is
// rejected everywhere else.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

type Claims struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

type Manager struct {
	secret []byte
	ttl    map[Purpose]time.Duration
	now    func() time.Time
}

func NewManager(secret string, accessTTL, verifyTTL, resetTTL time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl: map[Purpose]time.Duration{
			PurposeAccess:        accessTTL,
			PurposeVerifyEmail:   verifyTTL,
			PurposeResetPassword: resetTTL,
		},
		now: time.Now,
	}
}

func (m *Manager) Issue(purpose Purpose, userID, email string) (string, error) {
	ttl, ok := m.ttl[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	now := m.now()
	claims := Claims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        util.GenerateUUID(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry and purpose. Every rejection wraps
// domain.ErrInvalidToken.
func (m *Manager) Parse(token string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: token is not valid for %s", domain.ErrInvalidToken, purpose)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims, nil
}
