package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/tmater/pulse/internal/check"
	"github.com/tmater/pulse/internal/config"
	"github.com/tmater/pulse/internal/proto"
)

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	config   *config.ServerConfig
	resolver check.Resolver
	limiter  *rateLimiter
}

// New creates a new Handler. resolver serves the DNS checks.
func New(cfg *config.ServerConfig, resolver check.Resolver) *Handler {
	return &Handler{
		config:   cfg,
		resolver: resolver,
		limiter:  newRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/lookup", h.limiter.middleware(h.handleLookup))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return withRequestID(h.cors(mux))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %s", err)
	}
}

// writeError answers with the {"error": msg} body dashboards show verbatim.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, proto.APIError{Error: msg})
}
