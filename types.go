package accounts

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package depends on. Implementations
// receive a message followed by alternating key/value pairs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Mailer delivers account emails. Send failures must never abort the flow that
// triggered them; callers log and move on.
type Mailer interface {
	SendConfirmation(ctx context.Context, toEmail, confirmationLink string) error
}

// PasswordAuthenticator hashes and verifies passwords.
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenIssuer mints and validates the signed tokens the service hands out.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
	IssueConfirmation(userID string) (string, time.Time, error)
	Validate(token string) (*JWTClaims, error)
	ValidateConfirmation(token string) (*JWTClaims, error)
}

// Config holds the options the auth components read. The concrete struct lives
// in config.go; components only see this surface.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetTokenTTL() time.Duration
	GetConfirmationTTL() time.Duration
	GetLeeway() time.Duration
	GetBcryptCost() int
	GetPasswordPolicy() PasswordPolicy
	GetMaxLoginAttempts() int
	GetLoginCoolDown() time.Duration
	GetConfirmationBaseURL() string
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
