package models

import "github.com/shopspring/decimal"

// WithdrawRequest represents the JSON body for withdrawing funds
// swagger:model WithdrawRequest
type WithdrawRequest struct {
	// Account to debit
	// required: true
	// example: ACC7K2M9QX1B
	AccountNumber string `json:"accountNumber"`

	// Amount to withdraw, at most two fraction digits
	// required: true
	// example: 50.00
	Amount decimal.Decimal `json:"amount"`

	// Optional description, defaults to "Withdrawal"
	// example: ATM
	Description string `json:"description,omitempty"`
}

// WithdrawResponse represents a successful withdrawal response
// swagger:model WithdrawResponse
type WithdrawResponse struct {
	// Success message
	// example: Withdrawal successful
	Message string `json:"message"`

	// Ledger transaction identifier
	TransactionID string `json:"transactionId"`

	// Withdrawn amount
	// example: 50.00
	Amount string `json:"amount"`

	// Balance after the withdrawal
	// example: 950.00
	NewBalance string `json:"newBalance"`

	// True when the response replays an earlier request with the same Idempotency-Key
	Replayed bool `json:"replayed,omitempty"`
}
