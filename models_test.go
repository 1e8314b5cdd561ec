package accounts_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-labs/accounts"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User@Example.com", "user@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"MIXED.Case+Tag@EXAMPLE.COM", "mixed.case+tag@example.com"},
		{"already@lower.io", "already@lower.io"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, accounts.NormalizeEmail(tt.input))
	}
}

func TestUserJSONHidesSensitiveFields(t *testing.T) {
	user := &accounts.User{
		Email:         "user@example.com",
		PasswordHash:  "$2a$10$abcdefghijklmnopqrstuv",
		LoginAttempts: 3,
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "user@example.com", out["email"])
	assert.NotContains(t, out, "password_hash")
	assert.NotContains(t, out, "login_attempts")
	assert.NotContains(t, out, "deleted_at")
}
