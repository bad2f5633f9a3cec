package handlers

//go:generate mockgen -source=withdraw.go -destination=withdraw_mock_test.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/shopspring/decimal"
)

// WithdrawWriter defines the interface that the service must implement.
type WithdrawWriter interface {
	Withdraw(ctx context.Context, ownerID uuid.UUID, accountNumber string, amount decimal.Decimal, description, idempotencyKey string) (*models.Receipt, error)
}

// NewWithdrawHandler returns an HTTP handler for withdrawing funds from an account.
// @Summary Withdraw funds
// @Description Debits an account owned by the caller. Fails if the balance does not cover the amount.
// @Tags transactions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client key that makes retries safe"
// @Param request body models.WithdrawRequest true "Withdraw Request"
// @Success 200 {object} models.WithdrawResponse "Withdrawal successful"
// @Failure 400 {object} models.ErrorResponse "Invalid amount or insufficient funds"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Account not found"
// @Failure 409 {object} models.ErrorResponse "Idempotency-Key reused"
// @Failure 503 {object} models.ErrorResponse "Account is busy"
// @Failure 500 {object} models.ErrorResponse "Transaction failed"
// @Router /transactions/withdraw [post]
// @Security BearerAuth
func NewWithdrawHandler(svc WithdrawWriter) http.HandlerFunc {
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

		var req models.WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			requestLog(r).Errorw("failed to decode withdraw request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.AccountNumber = strings.TrimSpace(req.AccountNumber)
		if req.AccountNumber == "" {
			requestLog(r).Warnw("withdrawal without account number", "owner_id", ownerID)
			writeError(w, http.StatusBadRequest, "accountNumber is required")
			return
		}

		receipt, err := svc.Withdraw(ctx, ownerID, req.AccountNumber, req.Amount, req.Description, key)
		if err != nil {
			requestLog(r).Errorw("failed to withdraw funds", "owner_id", ownerID, "account", req.AccountNumber, "amount", req.Amount, "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.WithdrawResponse{
			Message:       "Withdrawal successful",
			TransactionID: receipt.TransactionID.String(),
			Amount:        receipt.Amount.StringFixed(2),
			NewBalance:    receipt.NewBalance.StringFixed(2),
			Replayed:      receipt.Replayed,
		})
	}
}
