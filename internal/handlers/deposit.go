package handlers

//go:generate mockgen -source=deposit.go -destination=deposit_mock_test.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/shopspring/decimal"
)

// DepositWriter defines the interface that the service must implement.
type DepositWriter interface {
	Deposit(ctx context.Context, ownerID uuid.UUID, accountNumber string, amount decimal.Decimal, description, idempotencyKey string) (*models.Receipt, error)
}

// NewDepositHandler returns an HTTP handler for depositing funds into an account.
// @Summary Deposit funds
// @Description Credits an account owned by the caller and records a deposit in the ledger.
// @Tags transactions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client key that makes retries safe"
// @Param request body models.DepositRequest true "Deposit Request"
// @Success 200 {object} models.DepositResponse "Deposit successful"
// @Failure 400 {object} models.ErrorResponse "Invalid amount"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Account not found"
// @Failure 409 {object} models.ErrorResponse "Idempotency-Key reused"
// @Failure 503 {object} models.ErrorResponse "Account is busy"
// @Failure 500 {object} models.ErrorResponse "Transaction failed"
// @Router /transactions/deposit [post]
// @Security BearerAuth
func NewDepositHandler(svc DepositWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}
		key, ok := idempotencyKey(w, r)
		if !ok {
			return
		}

		var req models.DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			requestLog(r).Errorw("failed to decode deposit request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.AccountNumber = strings.TrimSpace(req.AccountNumber)
		if req.AccountNumber == "" {
			requestLog(r).Warnw("deposit without account number", "owner_id", ownerID)
			writeError(w, http.StatusBadRequest, "accountNumber is required")
			return
		}

		receipt, err := svc.Deposit(ctx, ownerID, req.AccountNumber, req.Amount, req.Description, key)
		if err != nil {
			requestLog(r).Errorw("failed to deposit funds", "owner_id", ownerID, "account", req.AccountNumber, "amount", req.Amount, "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.DepositResponse{
			Message:       "Deposit successful",
			TransactionID: receipt.TransactionID.String(),
			Amount:        receipt.Amount.StringFixed(2),
			NewBalance:    receipt.NewBalance.StringFixed(2),
			Replayed:      receipt.Replayed,
		})
	}
}
