package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-banking/internal/models"
	"github.com/sony/gobreaker"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BreakerStater exposes the event publisher's circuit breaker state.
type BreakerStater interface {
	State() gobreaker.State
}

// NewHealthHandler returns an HTTP handler reporting service health.
// The database is pinged when db is not nil. The publisher's breaker state is reported
// when publisher is not nil; an open breaker does not fail the check since events are best effort.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse "OK"
// @Failure 503 {object} models.HealthResponse "Database unavailable"
// @Router /health [get]
func NewHealthHandler(db Pinger, publisher BreakerStater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := models.HealthResponse{Status: "OK", Timestamp: time.Now().UTC().Format(time.RFC3339)}
		if publisher != nil {
			resp.Publisher = publisher.State().String()
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				requestLog(r).Errorw("health check failed", "error", err)
				resp.Status = "UNAVAILABLE"
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
