package ingest

import (
	"database/sql"
	"net/http"
)

// RegisterFeature wires the ingest repository and routes onto mux.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, apiKey string, opts ...Option) *Controller {
	ctrl := NewController(NewRepository(db), apiKey, opts...)
	ctrl.RegisterRoutes(mux)
	return ctrl
}
