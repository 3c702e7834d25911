package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/gitping/gitping/pkg/chat"
	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/storage"
	"github.com/gitping/gitping/pkg/types"
)

// Processor runs the full post-acceptance pipeline for one webhook:
// normalize, persist history, fan out to browser subscribers, forward to
// chat. It is invoked on a detached goroutine after the inbound request has
// already been answered, so every failure is logged and contained.
type Processor struct {
	normalizer *event.Normalizer
	dispatcher *Dispatcher
	chat       *chat.Notifier
	store      storage.Store
	logger     zerolog.Logger
}

// NewProcessor wires the pipeline. chat and store may be nil when those
// channels are disabled.
func NewProcessor(normalizer *event.Normalizer, dispatcher *Dispatcher, chatNotifier *chat.Notifier, store storage.Store) *Processor {
	return &Processor{
		normalizer: normalizer,
		dispatcher: dispatcher,
		chat:       chatNotifier,
		store:      store,
		logger:     log.WithComponent("processor"),
	}
}

// Process handles one accepted webhook body
func (pr *Processor) Process(ctx context.Context, raw json.RawMessage, headers http.Header) {
	defer func() {
		if r := recover(); r != nil {
			pr.logger.Error().
				Any("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic while processing webhook")
		}
	}()

	p := types.ParsePayload(raw)
	info := pr.normalizer.Normalize(p, headers)
	metrics.WebhooksReceived.WithLabelValues(string(info.EventType)).Inc()

	pr.logger.Info().
		Str("event_type", string(info.EventType)).
		Str("project", info.Project).
		Str("branch", info.Branch).
		Str("user", info.Actor).
		Msg("processing webhook event")

	if pr.store != nil {
		stored := &types.StoredEvent{
			EventType:  info.EventType,
			Project:    info.Project,
			Branch:     info.Branch,
			Actor:      info.Actor,
			ReceivedAt: info.Timestamp,
			Raw:        raw,
		}
		if err := pr.store.AppendEvent(stored); err != nil {
			pr.logger.Error().Err(err).Msg("failed to persist event history")
		}
	}

	result := pr.dispatcher.Dispatch(info, p, raw)
	if !result.Success && result.Error != "" {
		pr.logger.Error().Str("error", result.Error).Msg("browser dispatch failed")
	}

	if pr.chat != nil && pr.chat.Enabled() {
		if err := pr.chat.Notify(ctx, info, p); err != nil {
			pr.logger.Error().Err(err).Msg("failed to send chat notification")
		}
	}
}
