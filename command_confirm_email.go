package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConfirmEmailMessage carries the token from the confirmation link.
type ConfirmEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(*User)
}

func (e ConfirmEmailMessage) Type() string { return "account.confirm_email" }

// ConfirmEmailHandler verifies the confirmation token and flips the account to
// confirmed. Confirming an already confirmed account succeeds again, so a
// double-clicked link never surfaces an error.
type ConfirmEmailHandler struct {
	repo   RepositoryManager
	tokens TokenIssuer
	logger Logger
}

// NewConfirmEmailHandler wires the confirmation command.
func NewConfirmEmailHandler(repo RepositoryManager, tokens TokenIssuer, logger Logger) *ConfirmEmailHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &ConfirmEmailHandler{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	claims, err := h.tokens.ValidateConfirmation(event.Token)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ErrTokenMalformed.Clone().
			WithMetadata(map[string]any{"uid": claims.UserID()})
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = h.repo.Users().ConfirmTx(ctx, tx, userID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				// the account is gone; the token is stale by definition
				return ErrTokenMalformed.Clone()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm account")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email confirmation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// ResendConfirmationMessage asks for a fresh confirmation email.
type ResendConfirmationMessage struct {
	Email string `json:"email"`
}

func (e ResendConfirmationMessage) Type() string { return "account.resend_confirmation" }

// ResendConfirmationHandler re-issues the confirmation email for a pending
// account. It reports success whether or not the address exists, so the
// endpoint cannot be used to enumerate accounts.
type ResendConfirmationHandler struct {
	repo   RepositoryManager
	tokens TokenIssuer
	mailer Mailer
	cfg    Config
	logger Logger
}

// NewResendConfirmationHandler wires the resend command.
func NewResendConfirmationHandler(repo RepositoryManager, tokens TokenIssuer, mailer Mailer, cfg Config, logger Logger) *ResendConfirmationHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &ResendConfirmationHandler{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

func (h *ResendConfirmationHandler) Execute(ctx context.Context, event ResendConfirmationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during confirmation resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendConfirmationHandler) execute(ctx context.Context, event ResendConfirmationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Debug("resend requested for unknown email", "email", NormalizeEmail(event.Email))
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account for resend")
	}

	if user.EmailConfirmed {
		h.logger.Debug("resend requested for confirmed account", "user_id", user.ID.String())
		return nil
	}

	token, _, err := h.tokens.IssueConfirmation(user.ID.String())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue confirmation token")
	}

	link := confirmationLink(h.cfg.GetConfirmationBaseURL(), token)
	if err := h.mailer.SendConfirmation(ctx, user.Email, link); err != nil {
		h.logger.Warn("resend confirmation email failed", "error", err, "email", user.Email)
	}

	return nil
}
