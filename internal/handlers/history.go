package handlers

//go:generate mockgen -source=history.go -destination=history_mock_test.go -package=handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/models"
)

// HistoryReader defines the interface that the service must implement.
type HistoryReader interface {
	History(ctx context.Context, ownerID uuid.UUID, accountNumber string, limit, offset int) ([]models.TransactionDB, error)
}

// NewHistoryHandler returns an HTTP handler listing the ledger records of an account.
// @Summary Transaction history
// @Description Returns transactions where the account is source or destination, newest first.
// @Tags transactions
// @Produce json
// @Param accountNumber path string true "Account number"
// @Param limit query int false "Page size, default 50, max 100"
// @Param offset query int false "Records to skip"
// @Success 200 {array} models.HistoryItem "Transactions"
// @Failure 400 {object} models.ErrorResponse "Invalid limit or offset"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 404 {object} models.ErrorResponse "Account not found"
// @Failure 500 {object} models.ErrorResponse "Failed to fetch transactions"
// @Router /transactions/{accountNumber} [get]
// @Security BearerAuth
func NewHistoryHandler(svc HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ownerID, ok := ownerFromRequest(w, r)
		if !ok {
			return
		}

		accountNumber := chi.URLParam(r, "accountNumber")

		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit or offset")
			return
		}
		offset, err := queryInt(r, "offset")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit or offset")
			return
		}

		records, err := svc.History(ctx, ownerID, accountNumber, limit, offset)
		if err != nil {
			requestLog(r).Errorw("failed to fetch transactions", "owner_id", ownerID, "account", accountNumber, "error", err)
			writeServiceError(w, err)
			return
		}

		items := make([]models.HistoryItem, 0, len(records))
		for _, rec := range records {
			items = append(items, models.NewHistoryItem(rec))
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
