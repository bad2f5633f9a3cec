package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is the result of a committed deposit or withdrawal.
type Receipt struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	NewBalance    decimal.Decimal
	Replayed      bool // the operation was found in the ledger by its idempotency key, nothing was applied
}

// TransferReceipt is the result of a committed transfer.
type TransferReceipt struct {
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	FromAccount   string
	ToAccount     string
	FromBalance   decimal.Decimal
	ToBalance     decimal.Decimal
	Replayed      bool
}
