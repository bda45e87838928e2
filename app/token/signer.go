package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token is only accepted for the purpose it was issued
// with.
const (
	PurposeVerify      = "verify"
	PurposeUnsubscribe = "unsubscribe"
)

// ErrInvalidToken covers expired, tampered and wrong-purpose tokens.
// Callers surface it as "invalid or expired link".
var ErrInvalidToken = errors.New("invalid or expired token")

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Signer issues and verifies stateless signed tokens binding an email
// address, a purpose and an expiry. Possession of a valid token is the sole
// authorization check; no server-side session exists.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Issue(email, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, expiry and purpose and returns the embedded
// email address.
func (s *Signer) Verify(tokenString, purpose string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if c.Purpose != purpose {
		return "", fmt.Errorf("%w: wrong purpose %q", ErrInvalidToken, c.Purpose)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
