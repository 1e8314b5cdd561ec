package accounts

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes are the paths the controller registers.
type AuthControllerRoutes struct {
	Signup        string
	SignIn        string
	Confirm       string
	ConfirmResend string
	Me            string
}

// AuthController is the JSON surface over the account lifecycle.
type AuthController struct {
	Debug   bool
	Logger  Logger
	Routes  *AuthControllerRoutes
	Signup  *SignupHandler
	Confirm *ConfirmEmailHandler
	Resend  *ResendConfirmationHandler
	Auther  *Auther
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// NewAuthController builds the controller. All four collaborators are
// mandatory; there is no lazy wiring.
func NewAuthController(signup *SignupHandler, confirm *ConfirmEmailHandler, resend *ResendConfirmationHandler, auther *Auther, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Signup:        "/auth/signup",
			SignIn:        "/auth/signin",
			Confirm:       "/auth/confirm",
			ConfirmResend: "/auth/confirm/resend",
			Me:            "/auth/me",
		},
		Signup:  signup,
		Confirm: confirm,
		Resend:  resend,
		Auther:  auther,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Signup == nil || c.Confirm == nil || c.Resend == nil || c.Auther == nil {
		panic("Missing handlers in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the auth endpoints on the given app.
func (a *AuthController) RegisterRoutes(app *fiber.App) {
	app.Post(a.Routes.Signup, a.SignupPost).Name("signup.post")
	app.Post(a.Routes.SignIn, a.SignInPost).Name("sign-in.post")
	app.Get(a.Routes.Confirm, a.ConfirmGet).Name("confirm.get")
	app.Post(a.Routes.ConfirmResend, a.ConfirmResendPost).Name("confirm-resend.post")
	app.Get(a.Routes.Me, a.MeGet).Name("me.get")
}

// SignupPayload is the request body for account creation.
type SignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignupPost(ctx *fiber.Ctx) error {
	payload := new(SignupPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload", "error", err)
		return a.renderValidationError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload", "payload", print.MaybePrettyJSON(payload))
	}

	var user *User
	msg := SignupMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Phone:    payload.Phone,
		OnResponse: func(u *User) {
			user = u
		},
	}

	if err := a.Signup.Execute(ctx.UserContext(), msg); err != nil {
		a.Logger.Error("signup execute", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
	})
}

// SignInPayload is the request body for sign-in.
type SignInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r SignInPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignInPost(ctx *fiber.Ctx) error {
	payload := new(SignInPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("sign-in parse payload", "error", err)
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	result, err := a.Auther.SignIn(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":       result.User,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

func (a *AuthController) ConfirmGet(ctx *fiber.Ctx) error {
	token := ctx.Query("token")
	if token == "" {
		return a.renderError(ctx, goerrors.New("missing confirmation token", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest))
	}

	var user *User
	msg := ConfirmEmailMessage{
		Token: token,
		OnResponse: func(u *User) {
			user = u
		},
	}

	if err := a.Confirm.Execute(ctx.UserContext(), msg); err != nil {
		a.Logger.Error("confirm execute", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"confirmed": true,
		"user":      user,
	})
}

// ResendPayload is the request body for confirmation resend.
type ResendPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ResendPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ConfirmResendPost(ctx *fiber.Ctx) error {
	payload := new(ResendPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return a.renderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(ctx, err)
	}

	if err := a.Resend.Execute(ctx.UserContext(), ResendConfirmationMessage{Email: payload.Email}); err != nil {
		a.Logger.Error("confirm resend execute", "error", err)
		return a.renderError(ctx, err)
	}

	// 202 regardless of whether the account exists
	return ctx.SendStatus(fiber.StatusAccepted)
}

func (a *AuthController) MeGet(ctx *fiber.Ctx) error {
	raw := bearerToken(ctx.Get(fiber.HeaderAuthorization))
	if raw == "" {
		return a.renderError(ctx, ErrTokenMalformed)
	}

	user, err := a.Auther.UserFromToken(ctx.UserContext(), raw)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"user": user,
	})
}

func bearerToken(header string) string {
	const scheme = "Bearer "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}

func (a *AuthController) renderValidationError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message":    "invalid request payload",
			"text_code":  "VALIDATION_ERROR",
			"validation": FormatValidationErrorToMap(err),
		},
	})
}

// renderError maps the error taxonomy onto HTTP statuses. Anything without a
// category is treated as internal and surfaces as a generic 500; details stay
// in the logs.
func (a *AuthController) renderError(ctx *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred")
	}

	status := statusForError(richErr)

	message := richErr.Message
	textCode := richErr.TextCode
	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		message = "internal server error"
		textCode = "INTERNAL"
	}

	return ctx.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"message":   message,
			"text_code": textCode,
		},
	})
}

func statusForError(richErr *goerrors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	if verr, ok := err.(validation.Errors); ok {
		for field, ferr := range verr {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["payload"] = err.Error()
	}

	return out
}
