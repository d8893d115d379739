package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/vmscout/internal/adapters/web/middleware"
)

func SetupRoutes(ctx context.Context, s *Server) http.Handler {
	r := mux.NewRouter()

	feedLimiter := middleware.NewRateLimiter(ctx, s.feedRateLimit, s.feedRateWindow)
	limited := middleware.RateLimitMiddleware(feedLimiter)
	protect := middleware.APIKeyMiddleware(s.apiKeyHash)

	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler

	// Feeds
	api.Handle("/feeds/nvd", limited(protect(http.HandlerFunc(s.FeedsHandler.HandleSyncNVD)))).Methods(http.MethodPost)
	api.Handle("/feeds/kev", limited(protect(http.HandlerFunc(s.FeedsHandler.HandleSyncKEV)))).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}", s.JobsHandler.HandleGet).Methods(http.MethodGet)

	// Matching
	api.Handle("/match/run", protect(http.HandlerFunc(s.MatchHandler.HandleRun))).Methods(http.MethodPost)
	api.HandleFunc("/findings", s.InventoryHandler.HandleListFindings).Methods(http.MethodGet)
	api.HandleFunc("/findings/report.pdf", s.ReportHandler.HandleFindingsPDF).Methods(http.MethodGet)

	// Inventory
	api.Handle("/ingest/inventory", protect(http.HandlerFunc(s.InventoryHandler.HandleIngest))).Methods(http.MethodPost)
	api.HandleFunc("/assets", s.InventoryHandler.HandleListAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/software", s.InventoryHandler.HandleListSoftware).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/services", s.InventoryHandler.HandleListServices).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.InventoryHandler.HandleStats).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"error":"method not allowed"}`))
}
