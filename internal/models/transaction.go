package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind is the kind of money movement recorded in the ledger.
type TransactionKind string

// Ledger record kinds
const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
	TransactionKindTransfer   TransactionKind = "transfer"
)

// TransactionStatusCompleted is the only status a persisted ledger record can have;
// failed operations never reach the ledger.
const TransactionStatusCompleted = "completed"

// TransactionDB represents an immutable ledger row in the database
type TransactionDB struct {
	TransactionID  uuid.UUID       `json:"transaction_id" db:"transaction_id"`   // Globally unique, never reused
	FromAccount    *string         `json:"from_account" db:"from_account"`       // Source account, nil for deposits
	ToAccount      *string         `json:"to_account" db:"to_account"`           // Destination account, nil for withdrawals
	Amount         decimal.Decimal `json:"amount" db:"amount"`                   // Positive amount moved
	Kind           TransactionKind `json:"kind" db:"kind"`                       // deposit, withdrawal or transfer
	Description    string          `json:"description" db:"description"`         // Free-text description
	Status         string          `json:"status" db:"status"`                   // Always "completed"
	InitiatorID    uuid.UUID       `json:"initiator_id" db:"initiator_id"`       // Owner who issued the operation
	IdempotencyKey *string         `json:"idempotency_key" db:"idempotency_key"` // Optional caller-supplied key
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`           // Creation timestamp
}

// Matches reports whether the record describes the same operation as the given parameters.
// It is used to tell a retried request apart from a key reused for a different operation.
func (t *TransactionDB) Matches(kind TransactionKind, from, to *string, amount decimal.Decimal) bool {
	return t.Kind == kind &&
		equalAccount(t.FromAccount, from) &&
		equalAccount(t.ToAccount, to) &&
		t.Amount.Equal(amount)
}

func equalAccount(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TransactionEvent is published to Kafka after a ledger record is committed.
type TransactionEvent struct {
	TransactionID string          `json:"transaction_id"`         // Ledger record id
	Timestamp     int64           `json:"timestamp"`              // Unix seconds of the commit
	Amount        string          `json:"amount"`                 // Amount with two fraction digits
	FromAccount   string          `json:"from_account,omitempty"` // Source account, empty for deposits
	ToAccount     string          `json:"to_account,omitempty"`   // Destination account, empty for withdrawals
	UserID        string          `json:"user_id"`                // Owner who issued the operation
	Operation     TransactionKind `json:"operation"`              // deposit, withdrawal or transfer
}

// NewTransactionEvent builds the event for a committed ledger record.
func NewTransactionEvent(t *TransactionDB) TransactionEvent {
	ev := TransactionEvent{
		TransactionID: t.TransactionID.String(),
		Timestamp:     t.CreatedAt.Unix(),
		Amount:        t.Amount.StringFixed(2),
		UserID:        t.InitiatorID.String(),
		Operation:     t.Kind,
	}
	if t.FromAccount != nil {
		ev.FromAccount = *t.FromAccount
	}
	if t.ToAccount != nil {
		ev.ToAccount = *t.ToAccount
	}
	return ev
}

// HistoryItem represents one ledger record in a history response
// swagger:model HistoryItem
type HistoryItem struct {
	// Transaction identifier
	// example: 5b0c7c1e-8f7d-4a57-9a59-8f1f1d0f2a10
	TransactionID string `json:"transactionId"`

	// Source account, absent for deposits
	// example: ACC7K2M9QX1B
	FromAccount *string `json:"fromAccount,omitempty"`

	// Destination account, absent for withdrawals
	// example: ACC3D8PL0ZQ4
	ToAccount *string `json:"toAccount,omitempty"`

	// Amount with two fraction digits
	// example: 300.00
	Amount string `json:"amount"`

	// Kind of movement
	// example: transfer
	Kind TransactionKind `json:"kind"`

	// Description
	// example: Rent
	Description string `json:"description"`

	// Creation time (RFC 3339)
	CreatedAt time.Time `json:"createdAt"`
}

// NewHistoryItem converts a ledger row into its response form.
func NewHistoryItem(t TransactionDB) HistoryItem {
	return HistoryItem{
		TransactionID: t.TransactionID.String(),
		FromAccount:   t.FromAccount,
		ToAccount:     t.ToAccount,
		Amount:        t.Amount.StringFixed(2),
		Kind:          t.Kind,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}
