package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/parkside-labs/accounts"
)

func testConfig() *accounts.AppConfig {
	return &accounts.AppConfig{
		SigningKey:             "test-signing-key",
		SigningMethod:          "HS256",
		Issuer:                 "accounts-test",
		TokenTTLSeconds:        604800,
		ConfirmationTTLSeconds: 86400,
		LeewaySeconds:          60,
		BcryptCost:             4,
		Password: accounts.PasswordPolicy{
			MinLength: 10,
			MaxLength: 100,
		},
		MaxLoginAttempts:     5,
		LoginCoolDownPattern: "24h",
		ConfirmationBaseURL:  "http://localhost:8080/auth/confirm",
	}
}

// memoryUsers is an in-memory Users store that honors the normalized-email
// uniqueness the real schema enforces with its unique index.
type memoryUsers struct {
	repository.Repository[*accounts.User]

	mu      sync.Mutex
	byID    map[string]*accounts.User
	byEmail map[string]*accounts.User
}

var _ accounts.Users = (*memoryUsers)(nil)

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:    map[string]*accounts.User{},
		byEmail: map[string]*accounts.User{},
	}
}

func notFound(meta map[string]any) error {
	return repository.NewRecordNotFound().WithMetadata(meta)
}

func cloneUser(u *accounts.User) *accounts.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (m *memoryUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, notFound(map[string]any{"id": id})
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return m.GetByEmailTx(ctx, nil, email)
}

func (m *memoryUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.byEmail[accounts.NormalizeEmail(email)]; ok {
		return cloneUser(u), nil
	}
	return nil, notFound(map[string]any{"email": accounts.NormalizeEmail(email)})
}

func (m *memoryUsers) Create(ctx context.Context, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	return m.CreateTx(ctx, nil, record, criteria...)
}

func (m *memoryUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.Email = accounts.NormalizeEmail(record.Email)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, exists := m.byEmail[record.Email]; exists {
		return nil, accounts.ErrDuplicateEmail.Clone().
			WithMetadata(map[string]any{"email": record.Email})
	}

	now := time.Now()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	m.byID[record.ID.String()] = cloneUser(record)
	m.byEmail[record.Email] = m.byID[record.ID.String()]

	return cloneUser(record), nil
}

func (m *memoryUsers) Confirm(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	return m.ConfirmTx(ctx, nil, id)
}

func (m *memoryUsers) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id.String()]
	if !ok {
		return nil, notFound(map[string]any{"id": id.String()})
	}

	if !u.EmailConfirmed {
		u.EmailConfirmed = true
		now := time.Now()
		u.ConfirmedAt = &now
	}

	return cloneUser(u), nil
}

func (m *memoryUsers) TrackAttemptedLogin(ctx context.Context, user *accounts.User) error {
	return m.TrackAttemptedLoginTx(ctx, nil, user)
}

func (m *memoryUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[user.ID.String()]
	if !ok {
		return notFound(map[string]any{"id": user.ID.String()})
	}

	u.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	u.LoginAttemptAt = &now

	return nil
}

func (m *memoryUsers) TrackSuccessfulLogin(ctx context.Context, user *accounts.User) error {
	return m.TrackSuccessfulLoginTx(ctx, nil, user)
}

func (m *memoryUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[user.ID.String()]
	if !ok {
		return notFound(map[string]any{"id": user.ID.String()})
	}

	now := time.Now()
	u.LoggedInAt = &now
	u.LoginAttempts = 0
	u.LoginAttemptAt = nil

	return nil
}

// seed inserts a user directly, bypassing the create path.
func (m *memoryUsers) seed(u *accounts.User) *accounts.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = accounts.NormalizeEmail(u.Email)
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	m.byID[u.ID.String()] = u
	m.byEmail[u.Email] = u

	return u
}

func (m *memoryUsers) get(id uuid.UUID) *accounts.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.byID[id.String()])
}

// memoryRepoManager satisfies RepositoryManager over the in-memory store. The
// transaction callback runs directly; the memory store has no transactions.
type memoryRepoManager struct {
	users *memoryUsers
}

var _ accounts.RepositoryManager = (*memoryRepoManager)(nil)

func newMemoryRepoManager() *memoryRepoManager {
	return &memoryRepoManager{users: newMemoryUsers()}
}

func (m *memoryRepoManager) Users() accounts.Users { return m.users }

func (m *memoryRepoManager) Validate() error { return nil }
func (m *memoryRepoManager) MustValidate()   {}

func (m *memoryRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}

// recordingMailer captures sends and can be told to fail.
type recordingMailer struct {
	mu    sync.Mutex
	sends []mailerSend
	err   error
}

type mailerSend struct {
	To   string
	Link string
}

var _ accounts.Mailer = (*recordingMailer)(nil)

func (m *recordingMailer) SendConfirmation(ctx context.Context, toEmail, confirmationLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.sends = append(m.sends, mailerSend{To: toEmail, Link: confirmationLink})
	return nil
}

func (m *recordingMailer) last() (mailerSend, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sends) == 0 {
		return mailerSend{}, false
	}
	return m.sends[len(m.sends)-1], true
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sends)
}

func assertTextCode(t *testing.T, err error, textCode string) {
	t.Helper()

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich), "expected a rich error, got %v", err)
	assert.Equal(t, textCode, rich.TextCode)
}
