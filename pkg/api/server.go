package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitping/gitping/pkg/config"
	"github.com/gitping/gitping/pkg/dispatch"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/registry"
	"github.com/gitping/gitping/pkg/sse"
	"github.com/gitping/gitping/pkg/storage"
)

// Server is the relay's HTTP surface: webhook intake, client registration,
// the SSE stream, registry snapshots, event history, health and metrics.
type Server struct {
	registry    *registry.Registry
	processor   *dispatch.Processor
	store       storage.Store
	secretToken string
	handler     http.Handler
	httpServer  *http.Server
	logger      zerolog.Logger
}

// NewServer wires the route table. store may be nil when history is
// disabled.
func NewServer(cfg *config.Config, reg *registry.Registry, processor *dispatch.Processor, store storage.Store) *Server {
	s := &Server{
		registry:    reg,
		processor:   processor,
		store:       store,
		secretToken: cfg.Webhook.SecretToken,
		logger:      log.WithComponent("api"),
	}

	streamHandler := sse.NewHandler(
		reg,
		cfg.SSE.HeartbeatInterval.Std(),
		cfg.SSE.SendBuffer,
		cfg.SSE.SendTimeout.Std(),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/clients/register", s.registerHandler)
	mux.HandleFunc("/api/clients", s.clientsHandler)
	mux.HandleFunc("/api/events/recent", s.recentEventsHandler)
	mux.Handle("/events", streamHandler)
	mux.HandleFunc("/webhook/gitlab", s.webhookHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", s.notFoundHandler)

	s.handler = corsMiddleware(s.loggingMiddleware(s.recoverMiddleware(mux)))
	return s
}

// Handler returns the fully wrapped route handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the HTTP server until it fails or Shutdown is called.
// WriteTimeout stays zero: /events connections are long-lived streams.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
