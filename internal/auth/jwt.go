package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	SubjectKey contextKey = "subject"
)

// Issuer identifies tokens minted for the persistence API.
const Issuer = "savvybot-backend"

// --- JWT Claims ---

// CustomClaims are the standard registered claims; Subject names the client
// (a device or user id).
type CustomClaims struct {
	jwt.RegisteredClaims
}

// NewAccessToken generates a new HS256 access token for subject.
func NewAccessToken(subject string, jwtSecret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
