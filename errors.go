package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeDuplicateEmail flags a signup against an email we already hold.
	TextCodeDuplicateEmail = "DUPLICATE_EMAIL"
	// TextCodeInvalidCredentials is the generic sign-in failure code.
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// TextCodeEmailNotConfirmed flags sign-in against a pending account.
	TextCodeEmailNotConfirmed = "EMAIL_NOT_CONFIRMED"
	// TextCodeTokenExpired flags tokens outside their validity window.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed flags tokens with a bad signature or structure.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeEmptyPassword flags empty input handed to the hasher.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeTooManyAttempts flags sign-in during the cool-down window.
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrDuplicateEmail is returned when the normalized email is already registered.
var ErrDuplicateEmail = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned for unknown users and bad passwords alike,
// so the response never reveals whether the account exists.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotConfirmed is returned when the password matched but the account
// has not confirmed its email address yet.
var ErrEmailNotConfirmed = goerrors.New("email address not confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned when a token falls outside its validity window
// even after applying the configured leeway.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyPassword rejects empty plaintext before it reaches bcrypt.
var ErrNoEmptyPassword = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned while a user is in the cool-down window.
// The HTTP layer maps the rate-limit category to 429.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)
