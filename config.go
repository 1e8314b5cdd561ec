package accounts

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// AppConfig is the typed configuration for the service. It is populated once
// at startup (cleanenv in cmd/server) and passed into components by reference;
// nothing reads the environment after boot.
type AppConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080" yaml:"http_addr"`
	DSN      string `env:"DATABASE_DSN" env-default:"file:accounts.db?cache=shared&mode=rwc" yaml:"dsn"`

	SigningKey    string `env:"JWT_SIGNING_KEY" yaml:"signing_key"`
	SigningMethod string `env:"JWT_SIGNING_METHOD" env-default:"HS256" yaml:"signing_method"`
	Issuer        string `env:"JWT_ISSUER" env-default:"accounts" yaml:"issuer"`

	// TokenTTLSeconds is the auth token lifetime, default seven days.
	TokenTTLSeconds        int `env:"JWT_TTL_SECONDS" env-default:"604800" yaml:"token_ttl_seconds"`
	ConfirmationTTLSeconds int `env:"CONFIRMATION_TTL_SECONDS" env-default:"86400" yaml:"confirmation_ttl_seconds"`
	LeewaySeconds          int `env:"JWT_LEEWAY_SECONDS" env-default:"60" yaml:"leeway_seconds"`

	BcryptCost int `env:"BCRYPT_COST" env-default:"12" yaml:"bcrypt_cost"`

	Password PasswordPolicy `yaml:"password"`

	MaxLoginAttempts     int    `env:"MAX_LOGIN_ATTEMPTS" env-default:"5" yaml:"max_login_attempts"`
	LoginCoolDownPattern string `env:"LOGIN_COOLDOWN" env-default:"24h" yaml:"login_cooldown"`

	ConfirmationBaseURL string `env:"CONFIRMATION_BASE_URL" env-default:"http://localhost:8080/auth/confirm" yaml:"confirmation_base_url"`

	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig is the mail transport endpoint.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" yaml:"host"`
	Port     string `env:"SMTP_PORT" env-default:"587" yaml:"port"`
	From     string `env:"SMTP_FROM" yaml:"from"`
	User     string `env:"SMTP_USER" yaml:"user"`
	Password string `env:"SMTP_PASSWORD" yaml:"password"`
}

// PasswordPolicy drives the signup password rules. Character-class checks are
// off by default; length is always enforced.
type PasswordPolicy struct {
	MinLength     int  `env:"PASSWORD_MIN_LENGTH" env-default:"10" yaml:"min_length"`
	MaxLength     int  `env:"PASSWORD_MAX_LENGTH" env-default:"100" yaml:"max_length"`
	RequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT" yaml:"require_digit"`
	RequireUpper  bool `env:"PASSWORD_REQUIRE_UPPER" yaml:"require_upper"`
	RequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL" yaml:"require_symbol"`
}

var (
	digitRe  = regexp.MustCompile(`[0-9]`)
	upperRe  = regexp.MustCompile(`[A-Z]`)
	symbolRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Rules builds the ozzo validation rules for a password field.
func (p PasswordPolicy) Rules() []validation.Rule {
	min, max := p.MinLength, p.MaxLength
	if min <= 0 {
		min = 10
	}
	if max <= 0 {
		max = 100
	}

	rules := []validation.Rule{
		validation.Required,
		validation.Length(min, max),
	}

	if p.RequireDigit {
		rules = append(rules, validation.Match(digitRe).Error("must contain a digit"))
	}
	if p.RequireUpper {
		rules = append(rules, validation.Match(upperRe).Error("must contain an uppercase letter"))
	}
	if p.RequireSymbol {
		rules = append(rules, validation.Match(symbolRe).Error("must contain a symbol"))
	}

	return rules
}

// Validate checks a plaintext password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	if err := validation.Validate(password, p.Rules()...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "password does not meet policy").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

var _ Config = (*AppConfig)(nil)

func (c *AppConfig) GetSigningKey() string    { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *AppConfig) GetIssuer() string        { return c.Issuer }

func (c *AppConfig) GetTokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

func (c *AppConfig) GetConfirmationTTL() time.Duration {
	return time.Duration(c.ConfirmationTTLSeconds) * time.Second
}

func (c *AppConfig) GetLeeway() time.Duration {
	return time.Duration(c.LeewaySeconds) * time.Second
}

func (c *AppConfig) GetBcryptCost() int                { return c.BcryptCost }
func (c *AppConfig) GetPasswordPolicy() PasswordPolicy { return c.Password }
func (c *AppConfig) GetMaxLoginAttempts() int          { return c.MaxLoginAttempts }
func (c *AppConfig) GetConfirmationBaseURL() string    { return c.ConfirmationBaseURL }

// GetLoginCoolDown parses the cool-down expression, falling back to 24h when
// the pattern is unparseable.
func (c *AppConfig) GetLoginCoolDown() time.Duration {
	dur, err := time.ParseDuration(c.LoginCoolDownPattern)
	if err != nil || dur <= 0 {
		return 24 * time.Hour
	}
	return dur
}

// Validate checks the startup invariants that have no safe default.
func (c *AppConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("JWT_SIGNING_KEY is required", goerrors.CategoryValidation)
	}
	if c.SigningMethod != "HS256" {
		return goerrors.New("only HS256 signing is supported", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"method": c.SigningMethod})
	}
	return nil
}
