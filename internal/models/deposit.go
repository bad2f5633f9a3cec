package models

import "github.com/shopspring/decimal"

// DepositRequest represents the JSON body for depositing funds
// swagger:model DepositRequest
type DepositRequest struct {
	// Account to credit
	// required: true
	// example: ACC7K2M9QX1B
	AccountNumber string `json:"accountNumber"`

	// Amount to deposit, at most two fraction digits
	// required: true
	// example: 500.00
	Amount decimal.Decimal `json:"amount"`

	// Optional description, defaults to "Deposit"
	// example: Salary
	Description string `json:"description,omitempty"`
}

// DepositResponse represents a successful deposit response
// swagger:model DepositResponse
type DepositResponse struct {
	// Success message
	// example: Deposit successful
	Message string `json:"message"`

	// Ledger transaction identifier
	TransactionID string `json:"transactionId"`

	// Deposited amount
	// example: 500.00
	Amount string `json:"amount"`

	// Balance after the deposit
	// example: 1500.00
	NewBalance string `json:"newBalance"`

	// True when the response replays an earlier request with the same Idempotency-Key
	Replayed bool `json:"replayed,omitempty"`
}
