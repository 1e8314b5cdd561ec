package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-persistence-bun"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/parkside-labs/accounts"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "accounts_http_requests_total",
	Help: "HTTP requests by route and status.",
}, []string{"route", "status"})

// persistenceConfig feeds go-persistence-bun; values come from the main
// AppConfig so there is a single source of configuration.
type persistenceConfig struct {
	dsn string
}

func (p persistenceConfig) GetDSN() string                { return p.dsn }
func (p persistenceConfig) GetDebug() bool                { return false }
func (p persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (p persistenceConfig) GetDriver() string             { return sqliteshim.ShimName }
func (p persistenceConfig) GetServer() string             { return "" }
func (p persistenceConfig) GetOtelIdentifier() string     { return "" }

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using system envs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &accounts.AppConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	base, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("error creating logger: %v", err)
	}
	defer func() {
		_ = base.Sync()
	}()

	logger := newZapLogger(base, "accounts")

	db, err := openDatabase(ctx, cfg, newZapLogger(base, "persistence"))
	if err != nil {
		log.Fatalf("error opening database: %v", err)
	}
	defer db.Close()

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	hasher := accounts.NewHasher(cfg.GetBcryptCost())
	tokens := accounts.NewTokenService(cfg, newZapLogger(base, "tokens"))

	var mailer accounts.Mailer
	if cfg.SMTP.Host != "" {
		mailer, err = accounts.NewSMTPMailer(cfg.SMTP, newZapLogger(base, "mailer"))
		if err != nil {
			log.Fatalf("error creating mailer: %v", err)
		}
	} else {
		logger.Warn("SMTP_HOST not set, confirmation emails are suppressed")
		mailer = accounts.NoopMailer{Logger: newZapLogger(base, "mailer")}
	}

	signup := accounts.NewSignupHandler(repo, hasher, tokens, mailer, cfg, logger)
	confirm := accounts.NewConfirmEmailHandler(repo, tokens, logger)
	resend := accounts.NewResendConfirmationHandler(repo, tokens, mailer, cfg, logger)
	auther := accounts.NewAuthenticator(repo, hasher, tokens, cfg).WithLogger(logger)

	controller := accounts.NewAuthController(signup, confirm, resend, auther,
		accounts.WithControllerLogger(newZapLogger(base, "http")),
	)

	app := fiber.New(fiber.Config{
		AppName:               "accounts",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		httpRequests.WithLabelValues(c.Route().Path, strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	})

	controller.RegisterRoutes(app)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func openDatabase(ctx context.Context, cfg *accounts.AppConfig, logger *zapLogger) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*accounts.User)(nil))

	client, err := persistence.New(persistenceConfig{dsn: cfg.DSN}, sqldb, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	client.SetLogger(logger)

	migrationsFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}
