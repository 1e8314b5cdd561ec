package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-labs/accounts"
)

func TestNewSMTPMailerLoadsTemplates(t *testing.T) {
	mailer, err := accounts.NewSMTPMailer(accounts.SMTPConfig{
		Host: "smtp.example.com",
		Port: "587",
		From: "no-reply@example.com",
	}, nil)

	require.NoError(t, err)
	assert.NotNil(t, mailer)
}

func TestNoopMailer(t *testing.T) {
	mailer := accounts.NoopMailer{}

	err := mailer.SendConfirmation(context.Background(), "user@example.com", "http://localhost/auth/confirm?token=x")
	assert.NoError(t, err)
}
