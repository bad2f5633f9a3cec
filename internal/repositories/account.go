package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is returned when no active account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNegativeBalance is returned when a delta would take a non-credit account below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrBalanceOutOfRange is returned when the new balance does not fit the balance column.
	ErrBalanceOutOfRange = errors.New("balance out of range")
)

// numeric_value_out_of_range
const pgNumericOutOfRange = "22003"

// applyDeltaQuery only lets account types that allow a negative balance go below zero.
var applyDeltaQuery = fmt.Sprintf(`
	UPDATE accounts
	SET balance = balance + $2, updated_at = NOW()
	WHERE account_number = $1
	  AND status = 'active'
	  AND (account_type IN (%s) OR balance + $2 >= 0)
	RETURNING balance
`, negativeBalanceTypes())

func negativeBalanceTypes() string {
	var types []string
	for _, t := range models.AccountTypes() {
		if t.AllowsNegativeBalance() {
			types = append(types, "'"+string(t)+"'")
		}
	}
	if len(types) == 0 {
		return "NULL"
	}
	return strings.Join(types, ", ")
}

// AccountRepository is the durable store of account state.
// Balances are only ever changed through ApplyDelta.
type AccountRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

// NewAccountRepository creates a new AccountRepository. txGetter may be nil.
func NewAccountRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *AccountRepository {
	return &AccountRepository{db: db, txGetter: txGetter}
}

// Lookup returns the active account with the given number.
// When ownerID is not nil the account must also belong to that owner.
// Missing, closed and foreign accounts all yield ErrAccountNotFound.
func (r *AccountRepository) Lookup(ctx context.Context, accountNumber string, ownerID *uuid.UUID) (*models.AccountDB, error) {
	return r.get(ctx, accountNumber, ownerID, true)
}

// Find is Lookup without the status filter: closed accounts are returned too.
func (r *AccountRepository) Find(ctx context.Context, accountNumber string, ownerID *uuid.UUID) (*models.AccountDB, error) {
	return r.get(ctx, accountNumber, ownerID, false)
}

func (r *AccountRepository) get(ctx context.Context, accountNumber string, ownerID *uuid.UUID, activeOnly bool) (*models.AccountDB, error) {
	const query = `
		SELECT account_number, owner_id, account_type, balance, status, created_at, updated_at
		FROM accounts
		WHERE account_number = $1
		  AND ($2::UUID IS NULL OR owner_id = $2)
		  AND (NOT $3::BOOLEAN OR status = 'active')
	`

	var account models.AccountDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &account, query, accountNumber, ownerID, activeOnly)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{accountNumber, ownerID, activeOnly},
		"result", account.Balance,
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &account, nil
}

// ApplyDelta adds delta (positive or negative) to the stored balance in a single statement
// and returns the new balance. Unless the account type allows a negative balance the write
// is refused with ErrNegativeBalance if the result would drop below zero.
// Callers must hold the account's lease.
func (r *AccountRepository) ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (decimal.Decimal, error) {
	exec := executor(ctx, r.db, r.txGetter)

	var balance decimal.Decimal
	err := sqlx.GetContext(ctx, exec, &balance, applyDeltaQuery, accountNumber, delta)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(applyDeltaQuery), " "),
		"args", []any{accountNumber, delta},
		"result", balance,
		"error", err,
	)

	if err == nil {
		return balance, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange {
		return decimal.Zero, ErrBalanceOutOfRange
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, err
	}

	// No row updated: tell a missing/closed account apart from a refused debit.
	exists, err := r.isActive(ctx, exec, accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	if exists {
		return decimal.Zero, ErrNegativeBalance
	}
	return decimal.Zero, ErrAccountNotFound
}

func (r *AccountRepository) isActive(ctx context.Context, exec sqlx.ExtContext, accountNumber string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM accounts WHERE account_number = $1 AND status = 'active'
		)
	`

	var exists bool
	err := sqlx.GetContext(ctx, exec, &exists, query, accountNumber)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{accountNumber},
		"result", exists,
		"error", err,
	)

	return exists, err
}
