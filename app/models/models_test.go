package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"  Ada ", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.first, tt.last), "first=%q last=%q", tt.first, tt.last)
	}
}

func TestUserValidate(t *testing.T) {
	u := &User{ExternalID: "user_2abc", Email: "ada@example.com"}
	require.NoError(t, u.Validate())

	u.Email = "not-an-email"
	assert.Error(t, u.Validate())

	u.Email = ""
	assert.NoError(t, u.Validate(), "empty email is allowed for accounts without a primary address")

	u.ExternalID = ""
	assert.Error(t, u.Validate())
}

func TestTransactionBeforeCreate(t *testing.T) {
	txn := &Transaction{}
	require.NoError(t, txn.BeforeCreate(nil))

	_, err := uuid.Parse(txn.ID)
	assert.NoError(t, err)
	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.False(t, txn.IsTerminal())

	preset := &Transaction{ID: "fixed", Status: TransactionStatusSuccess}
	require.NoError(t, preset.BeforeCreate(nil))
	assert.Equal(t, "fixed", preset.ID)
	assert.True(t, preset.IsTerminal())
}

func TestWebhookEventSucceeded(t *testing.T) {
	now := time.Now()
	assert.False(t, (&WebhookEvent{}).Succeeded())
	assert.False(t, (&WebhookEvent{ProcessedAt: &now, ProcessingError: "boom"}).Succeeded())
	assert.True(t, (&WebhookEvent{ProcessedAt: &now}).Succeeded())
}
