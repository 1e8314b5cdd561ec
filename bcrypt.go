package accounts

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatchedHashAndPassword is the low-level verification failure. The
// authenticator translates it to ErrInvalidCredentials before it reaches a
// client.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// Hasher wraps bcrypt with a configurable cost factor.
type Hasher struct {
	cost      int
	dummyHash string
}

var _ PasswordAuthenticator = (*Hasher)(nil)

// NewHasher creates a Hasher. Costs outside bcrypt's valid range fall back to
// bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	h := &Hasher{cost: cost}

	// Pre-hash a throwaway value so sign-in against a missing account can burn
	// the same bcrypt work as a real comparison.
	dummy, err := h.HashPassword(uuid.NewString())
	if err == nil {
		h.dummyHash = dummy
	}

	return h
}

// HashPassword will generate a password hash
func (h *Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(hash), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *Hasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryAuth, "failed to compare password and hash")
	}
	return nil
}

// DummyCompare runs a bcrypt comparison that is guaranteed to fail. Used to
// equalize sign-in timing when no account matches the identifier.
func (h *Hasher) DummyCompare(password string) {
	if h.dummyHash == "" {
		return
	}
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash), []byte(password))
}
