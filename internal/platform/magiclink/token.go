// Package magiclink mints and verifies the signed tokens embedded in
// patient outreach links. A token binds a patient to a single quality
// measure for a fixed validity window; it is the entire authorization
// mechanism for an unauthenticated patient acting on their own record.
package magiclink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers bad signatures, malformed payloads, and
	// tokens signed with a different secret.
	ErrInvalidToken = errors.New("magiclink: invalid token")
	// ErrExpiredToken means the signature verified but the validity
	// window has passed.
	ErrExpiredToken = errors.New("magiclink: token expired")
)

// Claims are the verified contents of a magic-link token.
type Claims struct {
	PatientID   string
	MeasureCode string
	ExpiresAt   time.Time
}

type tokenClaims struct {
	PatientID   string `json:"pid"`
	MeasureCode string `json:"m"`
	jwt.RegisteredClaims
}

// Codec creates and verifies tokens with a shared symmetric secret, so
// verification needs no external lookup and the landing surface stays
// stateless aside from the ledger.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec returns a Codec signing with the given secret. Tokens expire
// ttl after minting.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the validity window applied to minted tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint produces a signed token binding the patient to the measure with
// an expiry of now + TTL. No side effects.
func (c *Codec) Mint(patientID, measureCode string) (string, error) {
	if patientID == "" {
		return "", fmt.Errorf("magiclink: patient id is required")
	}
	if measureCode == "" {
		return "", fmt.Errorf("magiclink: measure code is required")
	}

	now := c.now()
	claims := tokenClaims{
		PatientID:   patientID,
		MeasureCode: measureCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("magiclink: sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token and checks signature and expiry. It returns
// ErrExpiredToken only when the signature verified and the deadline has
// passed; every other failure is ErrInvalidToken. Callers facing
// patients must collapse the two into one generic message.
func (c *Codec) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if tc.PatientID == "" || tc.MeasureCode == "" || tc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		PatientID:   tc.PatientID,
		MeasureCode: tc.MeasureCode,
		ExpiresAt:   tc.ExpiresAt.Time,
	}, nil
}
