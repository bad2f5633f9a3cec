package handlers

//go:generate mockgen -source=transfer.go -destination=transfer_mock_test.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/shopspring/decimal"
)

// TransferWriter defines the interface that the service must implement.
type TransferWriter interface {
	Transfer(ctx context.Context, ownerID uuid.UUID, fromAccount, toAccount string, amount decimal.Decimal, description, idempotencyKey string) (*models.TransferReceipt, error)
}

// NewTransferHandler returns an HTTP handler for moving funds between two accounts.
// @Summary Transfer funds
// @Description Moves funds from an account owned by the caller to any active account. Both balances change atomically.
// @Tags transactions
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client key that makes retries safe"
// @Param request body models.TransferRequest true "Transfer Request"
// @Success 200 {object} models.TransferResponse "Transfer successful"
// @Failure 400 {object} models.ErrorResponse "Invalid amount, same account or insufficient funds"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Source or destination account not found"
// @Failure 409 {object} models.ErrorResponse "Idempotency-Key reused"
// @Failure 503 {object} models.ErrorResponse "Account is busy"
// @Failure 500 {object} models.ErrorResponse "Transfer failed"
// @Router /transactions/transfer [post]
// @Security BearerAuth
func NewTransferHandler(svc TransferWriter) http.HandlerFunc {
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

		var req models.TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			requestLog(r).Errorw("failed to decode transfer request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.FromAccount = strings.TrimSpace(req.FromAccount)
		req.ToAccount = strings.TrimSpace(req.ToAccount)
		if req.FromAccount == "" || req.ToAccount == "" {
			requestLog(r).Warnw("transfer without accounts", "owner_id", ownerID)
			writeError(w, http.StatusBadRequest, "fromAccount and toAccount are required")
			return
		}

		receipt, err := svc.Transfer(ctx, ownerID, req.FromAccount, req.ToAccount, req.Amount, req.Description, key)
		if err != nil {
			requestLog(r).Errorw("failed to transfer funds",
				"owner_id", ownerID,
				"from", req.FromAccount,
				"to", req.ToAccount,
				"amount", req.Amount,
				"error", err,
			)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.TransferResponse{
			Message:       "Transfer successful",
			TransactionID: receipt.TransactionID.String(),
			Amount:        receipt.Amount.StringFixed(2),
			FromAccount:   receipt.FromAccount,
			ToAccount:     receipt.ToAccount,
			FromBalance:   receipt.FromBalance.StringFixed(2),
			Replayed:      receipt.Replayed,
		})
	}
}
