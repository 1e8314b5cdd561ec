package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SignInResult is what a successful sign-in hands back to the transport.
type SignInResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Auther performs sign-in against the user store.
//
// Unknown email and wrong password produce the identical ErrInvalidCredentials,
// and the missing-account path still burns a bcrypt comparison so response
// timing does not reveal whether the address is registered.
type Auther struct {
	repo        RepositoryManager
	hasher      *Hasher
	tokens      TokenIssuer
	maxAttempts int
	coolDown    time.Duration
	logger      Logger
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(repo RepositoryManager, hasher *Hasher, tokens TokenIssuer, cfg Config) *Auther {
	return &Auther{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		maxAttempts: cfg.GetMaxLoginAttempts(),
		coolDown:    cfg.GetLoginCoolDown(),
		logger:      defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// SignIn verifies the credentials and issues an auth token.
func (s *Auther) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	users := s.repo.Users()

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.hasher.DummyCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during sign-in")
	}

	if user.LoginAttemptAt != nil && time.Since(*user.LoginAttemptAt) > s.coolDown {
		user.LoginAttempts = 0
	}

	if s.maxAttempts > 0 && user.LoginAttempts >= s.maxAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := s.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if trackErr := users.TrackAttemptedLogin(ctx, user); trackErr != nil {
			s.logger.Error("failed to track login attempt", "error", trackErr, "user_id", user.ID.String())
		}
		return nil, ErrInvalidCredentials
	}

	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}

	if err := users.TrackSuccessfulLogin(ctx, user); err != nil {
		s.logger.Error("failed to track successful login", "error", err, "user_id", user.ID.String())
	}

	token, expiresAt, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue auth token")
	}

	return &SignInResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// UserFromToken validates a bearer token and loads the account it names.
func (s *Auther) UserFromToken(ctx context.Context, raw string) (*User, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed.Clone().
			WithMetadata(map[string]any{"uid": claims.UserID()})
	}

	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user from token")
	}

	return user, nil
}
