package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/types"
)

// message is the outbound chat-webhook body. The markdown shape is the
// common denominator of team-chat webhook APIs; platform-specific template
// packs live outside this process.
type message struct {
	MsgType  string   `json:"msgtype"`
	Markdown markdown `json:"markdown"`
}

type markdown struct {
	Content string `json:"content"`
}

// Notifier forwards a one-line summary of each event to a chat webhook URL.
// It is disabled when no URL is configured, and sends are rate limited so a
// webhook burst cannot flood the chat API.
type Notifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New creates a Notifier. An empty webhookURL yields a disabled notifier
// whose Notify is a no-op.
func New(webhookURL string, ratePerSec int) *Notifier {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		logger:     log.WithComponent("chat"),
	}
}

// Enabled reports whether a webhook URL is configured
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Notify posts an event summary to the chat webhook. Failures are reported
// to the caller for logging but carry no delivery state.
func (n *Notifier) Notify(ctx context.Context, info types.EventInfo, p *types.WebhookPayload) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(message{
		MsgType:  "markdown",
		Markdown: markdown{Content: Summary(info, p)},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		metrics.ChatNotificationsFailed.Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ChatNotificationsFailed.Inc()
		return fmt.Errorf("chat webhook returned status %d", resp.StatusCode)
	}

	metrics.ChatNotificationsSent.Inc()
	n.logger.Info().Str("event_type", string(info.EventType)).Msg("chat notification sent")
	return nil
}

// Summary renders the one-line markdown body for an event
func Summary(info types.EventInfo, p *types.WebhookPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** %s", info.EventType, info.Project)
	if branch := strings.TrimPrefix(info.Branch, "refs/heads/"); branch != "" {
		fmt.Fprintf(&b, " (%s)", branch)
	}
	fmt.Fprintf(&b, " by %s", info.Actor)

	oa := p.ObjectAttributes
	switch info.EventType {
	case types.EventTypePush:
		fmt.Fprintf(&b, ", %d commit(s)", len(p.Commits))
	case types.EventTypeMergeRequest:
		if oa != nil {
			if oa.Action != "" {
				fmt.Fprintf(&b, ", %s", oa.Action)
			}
			if oa.Title != "" {
				fmt.Fprintf(&b, ": %s", oa.Title)
			}
			if link := event.ResolveURL(firstNonEmpty(oa.WebURL, oa.URL), info.InstanceBaseURL); link != "" {
				fmt.Fprintf(&b, "\n[view](%s)", link)
			}
		}
	case types.EventTypePipeline:
		if oa != nil && oa.Status != "" {
			fmt.Fprintf(&b, ", %s", oa.Status)
		}
	case types.EventTypeIssue:
		if oa != nil {
			if oa.Action != "" {
				fmt.Fprintf(&b, ", %s", oa.Action)
			}
			if oa.Title != "" {
				fmt.Fprintf(&b, ": %s", oa.Title)
			}
		}
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
