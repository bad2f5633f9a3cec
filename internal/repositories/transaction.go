package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/models"
)

// ErrDuplicateIdempotencyKey is returned when an owner reuses an idempotency key
// that another committed record already carries.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

const (
	uniqueViolation         = "23505"
	idempotencyKeyIndexName = "transactions_idempotency_key_idx"
)

const transactionColumns = `transaction_id, from_account, to_account, amount, kind, description,
		status, initiator_id, idempotency_key, created_at`

// TransactionRepository is the append-only ledger of completed money movements.
// It never updates or deletes a row.
type TransactionRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

// NewTransactionRepository creates a new TransactionRepository. txGetter may be nil.
func NewTransactionRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TransactionRepository {
	return &TransactionRepository{db: db, txGetter: txGetter}
}

// Append inserts a ledger record. Inside a TxManager scope the insert commits
// or rolls back together with the balance updates that produced it.
func (r *TransactionRepository) Append(ctx context.Context, record *models.TransactionDB) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (:transaction_id, :from_account, :to_account, :amount, :kind, :description,
			:status, :initiator_id, :idempotency_key, :created_at)
	`

	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db, r.txGetter), query, record)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{record.TransactionID, record.FromAccount, record.ToAccount, record.Amount, record.Kind},
		"result", rowsAffected,
		"error", err,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == idempotencyKeyIndexName {
		return ErrDuplicateIdempotencyKey
	}
	return err
}

// History returns records where the account is source or destination, newest first.
// Ties on created_at are broken by insertion order so repeated calls page identically.
func (r *TransactionRepository) History(ctx context.Context, accountNumber string, limit, offset int) ([]models.TransactionDB, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`

	records := make([]models.TransactionDB, 0)
	err := sqlx.SelectContext(ctx, executor(ctx, r.db, r.txGetter), &records, query, accountNumber, limit, offset)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{accountNumber, limit, offset},
		"result", len(records),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindByIdempotencyKey returns the record an owner committed under key, or nil if there is none.
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, initiatorID uuid.UUID, key string) (*models.TransactionDB, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE initiator_id = $1 AND idempotency_key = $2
	`

	var record models.TransactionDB
	err := sqlx.GetContext(ctx, executor(ctx, r.db, r.txGetter), &record, query, initiatorID, key)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{initiatorID, key},
		"result", record.TransactionID,
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
