package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-banking/internal/jwt"
	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/middlewares"
	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/sbilibin2017/gw-banking/internal/services"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the optional client key that makes a retried request safe.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

// requestLog returns the logger tagged with the request's correlation id.
func requestLog(r *http.Request) *zap.SugaredLogger {
	return logger.Log.With("request_id", middlewares.RequestIDFromContext(r.Context()))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// ownerFromRequest returns the owner identity stored by the auth middleware.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := jwt.UserIDFromContext(r.Context())
	if !ok {
		requestLog(r).Errorw("request without owner identity", "uri", r.RequestURI)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return ownerID, true
}

func idempotencyKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		writeError(w, http.StatusBadRequest, "Idempotency-Key is too long")
		return "", false
	}
	return key, true
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Amount must be positive with at most two decimal places and below 10^18")
	case errors.Is(err, services.ErrInvalidDescription):
		writeError(w, http.StatusBadRequest, "Description must be at most 255 characters")
	case errors.Is(err, services.ErrSameAccountTransfer):
		writeError(w, http.StatusBadRequest, "Cannot transfer to the same account")
	case errors.Is(err, services.ErrInvalidPagination):
		writeError(w, http.StatusBadRequest, "Invalid limit or offset")
	case errors.Is(err, services.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, services.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, services.ErrDestinationNotFound):
		writeError(w, http.StatusNotFound, "Destination account not found")
	case errors.Is(err, services.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "Idempotency-Key was already used for a different request")
	case errors.Is(err, services.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "Account is busy, try again")
	default:
		writeError(w, http.StatusInternalServerError, "Transaction failed")
	}
}
