package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose distinguishes session tokens from short-lived flow tokens.
type Purpose string

const (
	// PurposeSession is a login session token.
	PurposeSession Purpose = "session"
	// PurposeReset is a password-reset token.
	PurposeReset Purpose = "reset"
)

const (
	// SessionTTL is the validity window for login session tokens.
	SessionTTL = 7 * 24 * time.Hour
	// ResetTTL is the validity window for reset and verification credentials.
	ResetTTL = 10 * time.Minute
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, unexpected algorithm, malformed structure, or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the signed token payload.
type Claims struct {
	UserID  int64   `json:"uid"`
	Email   string  `json:"email,omitempty"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a token codec. The secret must be at least 32 characters.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters, got %d", len(secret))
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Issue creates a signed token for the given subject.
func (c *Codec) Issue(userID int64, email string, purpose Purpose, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry, and returns the claims.
// All failures are classified under ErrInvalidToken.
func (c *Codec) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
