package models

import "github.com/shopspring/decimal"

// TransferRequest represents the JSON body for moving funds between two accounts
// swagger:model TransferRequest
type TransferRequest struct {
	// Source account, must be owned by the caller
	// required: true
	// example: ACC7K2M9QX1B
	FromAccount string `json:"fromAccount"`

	// Destination account, may belong to another user
	// required: true
	// example: ACC3D8PL0ZQ4
	ToAccount string `json:"toAccount"`

	// Amount to transfer, at most two fraction digits
	// required: true
	// example: 300.00
	Amount decimal.Decimal `json:"amount"`

	// Optional description, defaults to "Transfer"
	// example: Rent
	Description string `json:"description,omitempty"`
}

// TransferResponse represents a successful transfer response
// swagger:model TransferResponse
type TransferResponse struct {
	// Success message
	// example: Transfer successful
	Message string `json:"message"`

	// Ledger transaction identifier
	TransactionID string `json:"transactionId"`

	// Transferred amount
	// example: 300.00
	Amount string `json:"amount"`

	// Source account
	FromAccount string `json:"fromAccount"`

	// Destination account
	ToAccount string `json:"toAccount"`

	// Source balance after the transfer
	// example: 700.00
	FromBalance string `json:"fromBalance"`

	// True when the response replays an earlier request with the same Idempotency-Key
	Replayed bool `json:"replayed,omitempty"`
}
