package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

// NewMux returns a mux with GET /healthz and, when metrics is non-nil, GET /metrics.
// Feature modules register their own routes on it.
func NewMux(db *sql.DB, metrics http.Handler, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, logger)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

type healthchecker struct {
	db     *sql.DB
	logger *slog.Logger
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &healthchecker{db: db, logger: logger}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var ok int
	if err := h.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "failed to check database connectivity")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
