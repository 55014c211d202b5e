package utils // helpers for session token creation

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenTTL is the fixed lifetime of a signed session token.
const SessionTokenTTL = 24 * time.Hour

// SessionToken represents a signed JWT session token along with its
// expiry. The portal issues a single token per login or registration;
// there is no refresh flow.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a user. The claims
// embed the user's id (sub), email and role so the middleware can
// reconstruct the acting principal without a database lookup.
func NewSessionToken(secret string, userID uint64, email, role string) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(SessionTokenTTL)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
