package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account.
type AccountType string

// Supported account types
const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCredit   AccountType = "credit"
)

// AccountTypes returns every supported account type.
func AccountTypes() []AccountType {
	return []AccountType{AccountTypeChecking, AccountTypeSavings, AccountTypeCredit}
}

// AllowsNegativeBalance reports whether the store may hold a balance below zero for this type.
// Only credit accounts do; checking and savings must stay >= 0 at all times.
func (t AccountType) AllowsNegativeBalance() bool {
	return t == AccountTypeCredit
}

// AccountStatus is the lifecycle state of an account. Accounts are never deleted, only closed.
type AccountStatus string

// Account statuses
const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// AccountDB represents an account row in the database
type AccountDB struct {
	AccountNumber string          `json:"account_number" db:"account_number"` // Unique, immutable account number
	OwnerID       uuid.UUID       `json:"owner_id" db:"owner_id"`             // Identifier of the owning user
	Type          AccountType     `json:"account_type" db:"account_type"`     // checking, savings or credit
	Balance       decimal.Decimal `json:"balance" db:"balance"`               // Exact fixed-point balance
	Status        AccountStatus   `json:"status" db:"status"`                 // active or closed
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`         // Creation timestamp
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`         // Last balance change
}

// BalanceResponse represents a successful balance query
// swagger:model BalanceResponse
type BalanceResponse struct {
	// Account number
	// example: ACC7K2M9QX1B
	AccountNumber string `json:"accountNumber"`

	// Account type
	// example: checking
	AccountType AccountType `json:"accountType"`

	// Current balance with two fraction digits
	// example: 1000.00
	Balance string `json:"balance"`
}
