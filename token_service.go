package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl issues and validates the HS256 tokens the service uses for
// both auth sessions and email confirmation.
type TokenServiceImpl struct {
	signingKey      []byte
	issuer          string
	tokenTTL        time.Duration
	confirmationTTL time.Duration
	leeway          time.Duration
	logger          Logger
	now             func() time.Time
}

var _ TokenIssuer = (*TokenServiceImpl)(nil)

// TokenServiceOption customizes a TokenServiceImpl.
type TokenServiceOption func(*TokenServiceImpl)

// WithTimeFunc overrides the clock. Tests use this to pin issuance and
// validation to a known instant.
func WithTimeFunc(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger, opts ...TokenServiceOption) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	ts := &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		issuer:          cfg.GetIssuer(),
		tokenTTL:        cfg.GetTokenTTL(),
		confirmationTTL: cfg.GetConfirmationTTL(),
		leeway:          cfg.GetLeeway(),
		logger:          logger,
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// Issue mints an auth token for the given user id and returns the signed token
// along with its expiration.
func (ts *TokenServiceImpl) Issue(userID string) (string, time.Time, error) {
	return ts.issue(userID, PurposeAuth, ts.tokenTTL)
}

// IssueConfirmation mints the short-lived token embedded in confirmation
// emails.
func (ts *TokenServiceImpl) IssueConfirmation(userID string) (string, time.Time, error) {
	return ts.issue(userID, PurposeConfirmEmail, ts.confirmationTTL)
}

func (ts *TokenServiceImpl) issue(userID, purpose string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required", errors.CategoryBadInput)
	}

	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:     userID,
		Purpose: purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, expiresAt, nil
}

// Validate parses an auth token and returns its claims. Validity requires the
// signature to check out and the current time to fall within
// [issuedAt - leeway, expiry + leeway].
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	return ts.validate(tokenString, PurposeAuth)
}

// ValidateConfirmation parses a confirmation token and returns its claims.
func (ts *TokenServiceImpl) ValidateConfirmation(tokenString string) (*JWTClaims, error) {
	return ts.validate(tokenString, PurposeConfirmEmail)
}

func (ts *TokenServiceImpl) validate(tokenString, purpose string) (*JWTClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithLeeway(ts.leeway),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenUsedBeforeIssued) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, ErrTokenMalformed
	}

	if claims.Purpose != purpose {
		return nil, ErrTokenMalformed.Clone().
			WithMetadata(map[string]any{"purpose": claims.Purpose})
	}

	return claims, nil
}
