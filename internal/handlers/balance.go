package handlers

//go:generate mockgen -source=balance.go -destination=balance_mock_test.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/models"
)

// BalanceReader defines the interface that the service must implement.
type BalanceReader interface {
	Balance(ctx context.Context, ownerID uuid.UUID, accountNumber string) (*models.AccountDB, error)
}

// NewBalanceHandler returns an HTTP handler for fetching an account balance.
// @Summary Get account balance
// @Description Returns the current balance of an active account owned by the caller
// @Tags accounts
// @Produce json
// @Param accountNumber path string true "Account number"
// @Success 200 {object} models.BalanceResponse "Account balance"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Account not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /accounts/{accountNumber}/balance [get]
// @Security BearerAuth
func NewBalanceHandler(svc BalanceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		account, err := svc.Balance(ctx, ownerID, accountNumber)
		if err != nil {
			requestLog(r).Errorw("failed to get balance", "owner_id", ownerID, "account", accountNumber, "error", err)
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.BalanceResponse{
			AccountNumber: account.AccountNumber,
			AccountType:   account.Type,
			Balance:       account.Balance.StringFixed(2),
		})
	}
}
