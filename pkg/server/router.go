package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/disha-labs/insight/pkg/dashboard"
)

// NewRouter wires the analytics API. The submission intake lives in a
// separate service; this surface only exposes read, export, and admin
// operations.
func NewRouter(h *Handler, hub *dashboard.Hub) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/aggregate", h.HandleAggregate).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.HandleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/export", h.HandleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", h.HandleImport).Methods(http.MethodPost)
	api.HandleFunc("/cleanup", h.HandleCleanup).Methods(http.MethodPost)
	api.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	if hub != nil {
		api.HandleFunc("/ws", hub.HandleWebSocket).Methods(http.MethodGet)
	}

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
