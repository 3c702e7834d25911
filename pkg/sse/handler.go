package sse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/registry"
)

// Handler serves GET /events: it upgrades the request to a long-lived SSE
// stream, registers the connection with the registry and pumps notification
// frames plus periodic heartbeat comments until either side closes.
type Handler struct {
	registry    *registry.Registry
	heartbeat   time.Duration
	buffer      int
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewHandler creates an SSE handler bound to the given registry
func NewHandler(reg *registry.Registry, heartbeat time.Duration, buffer int, sendTimeout time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Handler{
		registry:    reg,
		heartbeat:   heartbeat,
		buffer:      buffer,
		sendTimeout: sendTimeout,
		logger:      log.WithComponent("sse"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "userId is required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	conn := NewConn(h.buffer, h.sendTimeout)
	defer conn.Close()

	h.registry.Connect(userID, conn, r.URL.Query().Get("gitlabBaseUrl"))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conn.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case payload := <-conn.out:
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
