package accounts

import (
	"context"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// SignupMessage carries the payload for account creation.
type SignupMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone,omitempty"`
	UseHashid  bool   `json:"-"`
	OnResponse func(*User)
}

func (e SignupMessage) Type() string { return "account.signup" }

// SignupHandler creates the account, then triggers the confirmation email.
// The email is a side effect: delivery failure is logged and the signup still
// succeeds.
type SignupHandler struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	tokens TokenIssuer
	mailer Mailer
	cfg    Config
	logger Logger
}

// NewSignupHandler wires the signup command.
func NewSignupHandler(repo RepositoryManager, hasher PasswordAuthenticator, tokens TokenIssuer, mailer Mailer, cfg Config, logger Logger) *SignupHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &SignupHandler{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	if err := h.validate(event); err != nil {
		return err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = NormalizeEmail(event.Email)
		user.Phone = normalizePhone(event.Phone)
		user.PasswordHash = hash
		user.EmailConfirmed = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(user.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	h.sendConfirmation(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *SignupHandler) validate(event SignupMessage) error {
	err := validation.Errors{
		"email":    validation.Validate(event.Email, validation.Required, validation.Length(6, 100), is.Email),
		"password": h.cfg.GetPasswordPolicy().Validate(event.Password),
		"phone":    validatePhone(event.Phone),
	}.Filter()

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload").
			WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

// sendConfirmation issues the confirmation token and mails the link. Failures
// here never unwind the signup.
func (h *SignupHandler) sendConfirmation(ctx context.Context, user *User) {
	token, _, err := h.tokens.IssueConfirmation(user.ID.String())
	if err != nil {
		h.logger.Error("signup could not issue confirmation token", "error", err, "user_id", user.ID.String())
		return
	}

	link := confirmationLink(h.cfg.GetConfirmationBaseURL(), token)
	if err := h.mailer.SendConfirmation(ctx, user.Email, link); err != nil {
		h.logger.Warn("signup confirmation email failed", "error", err, "email", user.Email)
	}
}

func confirmationLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String()
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}

	num, err := phonenumbers.Parse(phone, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"phone": phone})
	}

	return nil
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
