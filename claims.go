package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Auth tokens prove a signed-in session; confirmation tokens
// prove the holder received mail at the account's address. A token issued for
// one purpose never validates as the other.
const (
	PurposeAuth         = "auth"
	PurposeConfirmEmail = "confirm_email"
)

// JWTClaims is the claims set for every token the service signs.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// UserID returns the user the token was issued for, preferring the uid claim
// and falling back to the registered subject.
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
