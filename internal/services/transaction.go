package services

//go:generate mockgen -source=transaction.go -destination=transaction_mock_test.go -package=services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/lockers"
	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/sbilibin2017/gw-banking/internal/repositories"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for non-positive amounts, amounts with more than two fraction digits,
	// and amounts the stored balance cannot hold.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDescription is returned when the description is too long.
	ErrInvalidDescription = errors.New("description must be at most 255 characters")
	// ErrAccountNotFound is returned when the account is missing, closed or owned by someone else.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDestinationNotFound is returned when a transfer targets a missing or closed account.
	ErrDestinationNotFound = errors.New("destination account not found")
	// ErrSameAccountTransfer is returned when source and destination of a transfer are equal.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")
	// ErrInsufficientFunds is returned when the balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrLockTimeout is returned when the accounts could not be locked in time.
	ErrLockTimeout = lockers.ErrLockTimeout
	// ErrPersistenceFailure wraps store errors. Nothing was changed.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrIdempotencyConflict is returned when an idempotency key is reused for a different operation.
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different operation")
	// ErrInvalidPagination is returned for a negative limit or offset.
	ErrInvalidPagination = errors.New("invalid pagination")
)

const (
	DefaultHistoryLimit  = 50
	MaxHistoryLimit      = 100
	MaxDescriptionLength = 255

	// DefaultPublishTimeout bounds how long a committed operation waits for its event.
	DefaultPublishTimeout = 2 * time.Second
)

// maxAmount is the largest value the NUMERIC(20,2) columns hold.
var maxAmount = decimal.RequireFromString("999999999999999999.99")

const (
	defaultDepositDescription    = "Deposit"
	defaultWithdrawalDescription = "Withdrawal"
	defaultTransferDescription   = "Transfer"
)

// AccountStore reads and mutates account balances.
type AccountStore interface {
	Lookup(ctx context.Context, accountNumber string, ownerID *uuid.UUID) (*models.AccountDB, error)      // Returns an active account, optionally checking the owner
	Find(ctx context.Context, accountNumber string, ownerID *uuid.UUID) (*models.AccountDB, error)        // Like Lookup but also returns closed accounts
	ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (decimal.Decimal, error) // Adds delta and returns the new balance
}

// Ledger stores completed transactions.
type Ledger interface {
	Append(ctx context.Context, record *models.TransactionDB) error                                             // Inserts an immutable record
	History(ctx context.Context, accountNumber string, limit, offset int) ([]models.TransactionDB, error)       // Returns records for an account, newest first
	FindByIdempotencyKey(ctx context.Context, initiatorID uuid.UUID, key string) (*models.TransactionDB, error) // Returns the record committed under key or nil
}

// Locker grants exclusive access to a set of accounts.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (*lockers.Lease, error) // Locks keys in canonical order
}

// TxManager runs a function in one atomic unit of work.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error // Commits if fn returns nil, rolls back otherwise
}

// EventPublisher publishes committed transactions.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TransactionEvent) error // Publishes one event
}

// TransactionService moves money between accounts.
// Every operation locks its accounts, re-reads them, mutates and appends to the ledger
// in one unit of work, commits, and only then releases the locks.
type TransactionService struct {
	accounts  AccountStore
	ledger    Ledger
	locker    Locker
	txManager TxManager
	publisher EventPublisher
	now       func() time.Time

	publishTimeout time.Duration
}

// Option configures a TransactionService.
type Option func(*TransactionService)

// WithPublishTimeout sets how long a committed operation waits for its event to be published.
// Non-positive values keep DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *TransactionService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// NewTransactionService creates a new TransactionService. publisher may be nil.
func NewTransactionService(
	accounts AccountStore,
	ledger Ledger,
	locker Locker,
	txManager TxManager,
	publisher EventPublisher,
	opts ...Option,
) *TransactionService {
	s := &TransactionService{
		accounts:       accounts,
		ledger:         ledger,
		locker:         locker,
		txManager:      txManager,
		publisher:      publisher,
		now:            time.Now,
		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit credits amount to an account owned by ownerID.
func (s *TransactionService) Deposit(
	ctx context.Context,
	ownerID uuid.UUID,
	accountNumber string,
	amount decimal.Decimal,
	description, idempotencyKey string,
) (*models.Receipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	description, err := normalizeDescription(description, defaultDepositDescription)
	if err != nil {
		return nil, err
	}

	lease, err := s.acquire(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	var (
		receipt *models.Receipt
		record  *models.TransactionDB
	)
	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		replay, err := s.findReplay(ctx, ownerID, idempotencyKey, models.TransactionKindDeposit, nil, &accountNumber, amount)
		if err != nil {
			return err
		}
		if replay != nil {
			account, err := s.accounts.Find(ctx, accountNumber, &ownerID)
			if err != nil {
				return mapStoreError(err, ErrAccountNotFound)
			}
			receipt = &models.Receipt{TransactionID: replay.TransactionID, Amount: replay.Amount, NewBalance: account.Balance, Replayed: true}
			return nil
		}

		if _, err := s.accounts.Lookup(ctx, accountNumber, &ownerID); err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		balance, err := s.accounts.ApplyDelta(ctx, accountNumber, amount)
		if err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		record = s.newRecord(models.TransactionKindDeposit, nil, &accountNumber, amount, description, ownerID, idempotencyKey)
		if err := s.ledger.Append(ctx, record); err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		receipt = &models.Receipt{TransactionID: record.TransactionID, Amount: amount, NewBalance: balance}
		return nil
	})
	s.release(ctx, lease)

	if err != nil {
		err = classify(err)
		logger.Log.Errorw("deposit failed", "account", accountNumber, "amount", amount, "owner_id", ownerID, "error", err)
		return nil, err
	}

	if record != nil {
		s.publish(ctx, record)
	}
	return receipt, nil
}

// Withdraw debits amount from an account owned by ownerID.
// The balance check runs against the balance read after the lock was taken.
func (s *TransactionService) Withdraw(
	ctx context.Context,
	ownerID uuid.UUID,
	accountNumber string,
	amount decimal.Decimal,
	description, idempotencyKey string,
) (*models.Receipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	description, err := normalizeDescription(description, defaultWithdrawalDescription)
	if err != nil {
		return nil, err
	}

	lease, err := s.acquire(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	var (
		receipt *models.Receipt
		record  *models.TransactionDB
	)
	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		replay, err := s.findReplay(ctx, ownerID, idempotencyKey, models.TransactionKindWithdrawal, &accountNumber, nil, amount)
		if err != nil {
			return err
		}
		if replay != nil {
			account, err := s.accounts.Find(ctx, accountNumber, &ownerID)
			if err != nil {
				return mapStoreError(err, ErrAccountNotFound)
			}
			receipt = &models.Receipt{TransactionID: replay.TransactionID, Amount: replay.Amount, NewBalance: account.Balance, Replayed: true}
			return nil
		}

		account, err := s.accounts.Lookup(ctx, accountNumber, &ownerID)
		if err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		if account.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		balance, err := s.accounts.ApplyDelta(ctx, accountNumber, amount.Neg())
		if err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		record = s.newRecord(models.TransactionKindWithdrawal, &accountNumber, nil, amount, description, ownerID, idempotencyKey)
		if err := s.ledger.Append(ctx, record); err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		receipt = &models.Receipt{TransactionID: record.TransactionID, Amount: amount, NewBalance: balance}
		return nil
	})
	s.release(ctx, lease)

	if err != nil {
		err = classify(err)
		logger.Log.Errorw("withdrawal failed", "account", accountNumber, "amount", amount, "owner_id", ownerID, "error", err)
		return nil, err
	}

	if record != nil {
		s.publish(ctx, record)
	}
	return receipt, nil
}

// Transfer moves amount from an account owned by ownerID to any active account.
// Both balances change in the same unit of work, under one lease covering both accounts.
func (s *TransactionService) Transfer(
	ctx context.Context,
	ownerID uuid.UUID,
	fromAccount, toAccount string,
	amount decimal.Decimal,
	description, idempotencyKey string,
) (*models.TransferReceipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if fromAccount == toAccount {
		return nil, ErrSameAccountTransfer
	}
	description, err := normalizeDescription(description, defaultTransferDescription)
	if err != nil {
		return nil, err
	}

	lease, err := s.acquire(ctx, fromAccount, toAccount)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, lease)

	var (
		receipt *models.TransferReceipt
		record  *models.TransactionDB
	)
	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		replay, err := s.findReplay(ctx, ownerID, idempotencyKey, models.TransactionKindTransfer, &fromAccount, &toAccount, amount)
		if err != nil {
			return err
		}
		if replay != nil {
			source, err := s.accounts.Find(ctx, fromAccount, &ownerID)
			if err != nil {
				return mapStoreError(err, ErrAccountNotFound)
			}
			destination, err := s.accounts.Find(ctx, toAccount, nil)
			if err != nil {
				return mapStoreError(err, ErrDestinationNotFound)
			}
			receipt = &models.TransferReceipt{
				TransactionID: replay.TransactionID,
				Amount:        replay.Amount,
				FromAccount:   fromAccount,
				ToAccount:     toAccount,
				FromBalance:   source.Balance,
				ToBalance:     destination.Balance,
				Replayed:      true,
			}
			return nil
		}

		source, err := s.accounts.Lookup(ctx, fromAccount, &ownerID)
		if err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}
		if _, err := s.accounts.Lookup(ctx, toAccount, nil); err != nil {
			return mapStoreError(err, ErrDestinationNotFound)
		}

		if source.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		fromBalance, err := s.accounts.ApplyDelta(ctx, fromAccount, amount.Neg())
		if err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}
		toBalance, err := s.accounts.ApplyDelta(ctx, toAccount, amount)
		if err != nil {
			return mapStoreError(err, ErrDestinationNotFound)
		}

		record = s.newRecord(models.TransactionKindTransfer, &fromAccount, &toAccount, amount, description, ownerID, idempotencyKey)
		if err := s.ledger.Append(ctx, record); err != nil {
			return mapStoreError(err, ErrAccountNotFound)
		}

		receipt = &models.TransferReceipt{
			TransactionID: record.TransactionID,
			Amount:        amount,
			FromAccount:   fromAccount,
			ToAccount:     toAccount,
			FromBalance:   fromBalance,
			ToBalance:     toBalance,
		}
		return nil
	})
	s.release(ctx, lease)

	if err != nil {
		err = classify(err)
		logger.Log.Errorw("transfer failed", "from", fromAccount, "to", toAccount, "amount", amount, "owner_id", ownerID, "error", err)
		return nil, err
	}

	if record != nil {
		s.publish(ctx, record)
	}
	return receipt, nil
}

// History returns ledger records of an account owned by ownerID, newest first.
// Closed accounts keep their history. A zero limit selects DefaultHistoryLimit;
// larger limits are capped at MaxHistoryLimit.
func (s *TransactionService) History(ctx context.Context, ownerID uuid.UUID, accountNumber string, limit, offset int) ([]models.TransactionDB, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidPagination
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	if _, err := s.accounts.Find(ctx, accountNumber, &ownerID); err != nil {
		err = classify(mapStoreError(err, ErrAccountNotFound))
		logger.Log.Errorw("history lookup failed", "account", accountNumber, "owner_id", ownerID, "error", err)
		return nil, err
	}

	records, err := s.ledger.History(ctx, accountNumber, limit, offset)
	if err != nil {
		logger.Log.Errorw("failed to read history", "account", accountNumber, "limit", limit, "offset", offset, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	return records, nil
}

// Balance returns an active account owned by ownerID with its current balance.
func (s *TransactionService) Balance(ctx context.Context, ownerID uuid.UUID, accountNumber string) (*models.AccountDB, error) {
	account, err := s.accounts.Lookup(ctx, accountNumber, &ownerID)
	if err != nil {
		err = classify(mapStoreError(err, ErrAccountNotFound))
		logger.Log.Errorw("balance lookup failed", "account", accountNumber, "owner_id", ownerID, "error", err)
		return nil, err
	}
	return account, nil
}

func (s *TransactionService) acquire(ctx context.Context, accounts ...string) (*lockers.Lease, error) {
	lease, err := s.locker.Acquire(ctx, accounts...)
	if err == nil {
		return lease, nil
	}

	logger.Log.Errorw("failed to lock accounts", "accounts", accounts, "error", err)
	switch {
	case errors.Is(err, lockers.ErrLockTimeout):
		return nil, ErrLockTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
}

// release frees the lease even if the request context is already cancelled.
func (s *TransactionService) release(ctx context.Context, lease *lockers.Lease) {
	if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
		logger.Log.Warnw("failed to release account lock", "accounts", lease.Keys(), "error", err)
	}
}

// findReplay returns the record committed earlier under key when it describes the same operation.
func (s *TransactionService) findReplay(
	ctx context.Context,
	ownerID uuid.UUID,
	key string,
	kind models.TransactionKind,
	from, to *string,
	amount decimal.Decimal,
) (*models.TransactionDB, error) {
	if key == "" {
		return nil, nil
	}

	record, err := s.ledger.FindByIdempotencyKey(ctx, ownerID, key)
	if err != nil {
		return nil, mapStoreError(err, ErrAccountNotFound)
	}
	if record == nil {
		return nil, nil
	}
	if !record.Matches(kind, from, to, amount) {
		return nil, ErrIdempotencyConflict
	}

	logger.Log.Infow("replaying transaction", "transaction_id", record.TransactionID, "owner_id", ownerID, "idempotency_key", key)
	return record, nil
}

func (s *TransactionService) newRecord(
	kind models.TransactionKind,
	from, to *string,
	amount decimal.Decimal,
	description string,
	ownerID uuid.UUID,
	idempotencyKey string,
) *models.TransactionDB {
	record := &models.TransactionDB{
		TransactionID: uuid.New(),
		FromAccount:   from,
		ToAccount:     to,
		Amount:        amount,
		Kind:          kind,
		Description:   description,
		Status:        models.TransactionStatusCompleted,
		InitiatorID:   ownerID,
		CreatedAt:     s.now().UTC(),
	}
	if idempotencyKey != "" {
		record.IdempotencyKey = &idempotencyKey
	}
	return record
}

// publish sends the committed record to the event stream. Failures are only logged.
func (s *TransactionService) publish(ctx context.Context, record *models.TransactionDB) {
	if s.publisher == nil {
		logger.Log.Warnw("event publisher not configured, skipping publishing", "transaction_id", record.TransactionID)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, models.NewTransactionEvent(record)); err != nil {
		logger.Log.Errorw("failed to publish transaction event", "transaction_id", record.TransactionID, "error", err)
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) || amount.GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func normalizeDescription(description, fallback string) (string, error) {
	if description == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", ErrInvalidDescription
	}
	return description, nil
}

// mapStoreError translates repository errors into service errors.
// notFound is used for a missing account so the caller can tell source from destination.
func mapStoreError(err error, notFound error) error {
	switch {
	case errors.Is(err, repositories.ErrAccountNotFound):
		return notFound
	case errors.Is(err, repositories.ErrNegativeBalance):
		return ErrInsufficientFunds
	case errors.Is(err, repositories.ErrDuplicateIdempotencyKey):
		return ErrIdempotencyConflict
	case errors.Is(err, repositories.ErrBalanceOutOfRange):
		return ErrInvalidAmount
	default:
		return err
	}
}

var businessErrors = []error{
	ErrInvalidAmount,
	ErrAccountNotFound,
	ErrDestinationNotFound,
	ErrInsufficientFunds,
	ErrIdempotencyConflict,
	ErrPersistenceFailure,
}

// classify wraps anything that is not a business error as ErrPersistenceFailure.
func classify(err error) error {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}
