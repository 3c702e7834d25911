package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/registry"
	"github.com/gitping/gitping/pkg/types"
)

// maxWebhookBody bounds inbound webhook payload size
const maxWebhookBody = 5 << 20

// registerRequest is the POST /api/clients/register body
type registerRequest struct {
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserAgent     string `json:"userAgent"`
	GitlabBaseURL string `json:"gitlabBaseUrl"`
}

// healthHandler implements GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// registerHandler implements POST /api/clients/register
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	if err := s.registry.Register(req.UserID, req.UserName, req.UserAgent, req.GitlabBaseURL); err != nil {
		if errors.Is(err, registry.ErrMissingSubscriberID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userId":  req.UserID,
	})
}

// clientsHandler implements GET /api/clients
func (s *Server) clientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clients": s.registry.List(),
		"stats":   s.registry.Stats(),
	})
}

// recentEventsHandler implements GET /api/events/recent
func (s *Server) recentEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusNotFound, "event history disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.store.RecentEvents(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read event history")
		writeError(w, http.StatusInternalServerError, "failed to read event history")
		return
	}
	if events == nil {
		events = []*types.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// webhookHandler implements POST /webhook/gitlab. The sender is answered the
// moment the payload is accepted; normalization and fan-out run on a
// detached goroutine and never delay or fail this response.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.secretToken != "" {
		if r.Header.Get(event.HeaderToken) != s.secretToken {
			s.logger.Warn().Msg("webhook secret token mismatch")
			metrics.WebhooksRejected.Inc()
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil || !json.Valid(body) {
		metrics.WebhooksRejected.Inc()
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.logger.Info().
		Str("event_type", r.Header.Get(event.HeaderEvent)).
		Msg("gitlab webhook received")

	// Detached from this request's lifecycle on purpose.
	go s.processor.Process(context.Background(), body, r.Header.Clone())

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Webhook received and processing",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// notFoundHandler catches unrouted paths
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}
