package accounts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-labs/accounts"
)

// pinnedClock gives tests a movable "now".
type pinnedClock struct {
	current time.Time
}

func (c *pinnedClock) Now() time.Time          { return c.current }
func (c *pinnedClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newPinnedTokenService(t *testing.T, cfg accounts.Config) (*accounts.TokenServiceImpl, *pinnedClock) {
	t.Helper()

	clock := &pinnedClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	ts := accounts.NewTokenService(cfg, nil, accounts.WithTimeFunc(clock.Now))

	return ts, clock
}

func TestIssueAndValidate(t *testing.T) {
	cfg := testConfig()
	ts, clock := newPinnedTokenService(t, cfg)

	userID := "8e7f0cc4-2b86-4bb4-9e4c-0d6c8b1f0a11"

	token, expiresAt, err := ts.Issue(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, clock.Now().Add(cfg.GetTokenTTL()), expiresAt)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID())
	assert.Equal(t, accounts.PurposeAuth, claims.Purpose)
	assert.Equal(t, cfg.GetIssuer(), claims.Issuer)
	assert.WithinDuration(t, expiresAt, claims.Expires(), time.Second)
}

func TestIssueRequiresUserID(t *testing.T) {
	ts, _ := newPinnedTokenService(t, testConfig())

	_, _, err := ts.Issue("")
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	cfg := testConfig()
	ts, clock := newPinnedTokenService(t, cfg)

	token, _, err := ts.Issue("user-1")
	require.NoError(t, err)

	clock.Advance(cfg.GetTokenTTL() + cfg.GetLeeway() + time.Second)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assertTextCode(t, err, accounts.TextCodeTokenExpired)
}

func TestValidateWithinLeeway(t *testing.T) {
	cfg := testConfig()
	ts, clock := newPinnedTokenService(t, cfg)

	token, _, err := ts.Issue("user-1")
	require.NoError(t, err)

	clock.Advance(cfg.GetTokenTTL() + cfg.GetLeeway() - time.Second)

	_, err = ts.Validate(token)
	assert.NoError(t, err)
}

func TestValidateMalformedToken(t *testing.T) {
	ts, _ := newPinnedTokenService(t, testConfig())

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Validate(tt.token)
			require.Error(t, err)
			assertTextCode(t, err, accounts.TextCodeTokenMalformed)
		})
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	cfg := testConfig()
	ts, _ := newPinnedTokenService(t, cfg)

	otherCfg := testConfig()
	otherCfg.SigningKey = "a-different-signing-key"
	other, _ := newPinnedTokenService(t, otherCfg)

	token, _, err := other.Issue("user-1")
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assertTextCode(t, err, accounts.TextCodeTokenMalformed)
}

func TestPurposeIsolation(t *testing.T) {
	ts, _ := newPinnedTokenService(t, testConfig())

	authToken, _, err := ts.Issue("user-1")
	require.NoError(t, err)

	confirmToken, _, err := ts.IssueConfirmation("user-1")
	require.NoError(t, err)

	_, err = ts.ValidateConfirmation(authToken)
	require.Error(t, err)
	assertTextCode(t, err, accounts.TextCodeTokenMalformed)

	_, err = ts.Validate(confirmToken)
	require.Error(t, err)
	assertTextCode(t, err, accounts.TextCodeTokenMalformed)
}

func TestConfirmationTokenTTL(t *testing.T) {
	cfg := testConfig()
	ts, clock := newPinnedTokenService(t, cfg)

	token, expiresAt, err := ts.IssueConfirmation("user-1")
	require.NoError(t, err)

	assert.Equal(t, clock.Now().Add(cfg.GetConfirmationTTL()), expiresAt)

	clock.Advance(cfg.GetConfirmationTTL() + cfg.GetLeeway() + time.Second)

	_, err = ts.ValidateConfirmation(token)
	require.Error(t, err)
	assertTextCode(t, err, accounts.TextCodeTokenExpired)
}
