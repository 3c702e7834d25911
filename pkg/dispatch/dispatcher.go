package dispatch

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/target"
	"github.com/gitping/gitping/pkg/types"
)

// Sender is the slice of the registry the dispatcher fans out through
type Sender interface {
	SendToMany(userIDs []string, n *types.Notification) int
}

// Dispatcher composes a notification for one normalized event and pushes it
// to every resolved target subscriber.
type Dispatcher struct {
	sender Sender
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher writing through the given sender
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: log.WithComponent("dispatch"),
	}
}

// Dispatch resolves targets and fans the event out. It never panics past
// its boundary; internal failures surface as an unsuccessful result. An
// empty target set short-circuits without touching the registry.
func (d *Dispatcher) Dispatch(info types.EventInfo, p *types.WebhookPayload, raw json.RawMessage) (result types.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("event_type", string(info.EventType)).
				Any("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic during dispatch")
			result = types.DispatchResult{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	targets := target.ResolveTargets(info, p)
	if len(targets) == 0 {
		d.logger.Info().Str("event_type", string(info.EventType)).Msg("no target users, skipping browser notification")
		metrics.DispatchFailures.WithLabelValues(types.ReasonNoTargetUsers).Inc()
		return types.DispatchResult{Success: false, Reason: types.ReasonNoTargetUsers}
	}

	n := buildNotification(info, p, raw, targets)
	delivered := d.sender.SendToMany(targets, n)
	if delivered == 0 {
		d.logger.Warn().
			Str("event_type", string(info.EventType)).
			Strs("targets", targets).
			Msg("browser notification undeliverable: no target connected")
		metrics.DispatchFailures.WithLabelValues(types.ReasonClientsNotConnected).Inc()
		return types.DispatchResult{Success: false, Reason: types.ReasonClientsNotConnected, Targets: targets}
	}

	metrics.NotificationsSent.WithLabelValues(string(info.EventType)).Add(float64(delivered))
	d.logger.Info().
		Str("event_type", string(info.EventType)).
		Strs("targets", targets).
		Int("sent_count", delivered).
		Msg("browser notification sent")
	return types.DispatchResult{Success: true, SentCount: delivered, Targets: targets}
}

// buildNotification assembles the outbound unit, picking the data variant
// for the event type. Human-facing links are rewritten against the resolved
// instance base URL here, at presentation time.
func buildNotification(info types.EventInfo, p *types.WebhookPayload, raw json.RawMessage, targets []string) *types.Notification {
	return &types.Notification{
		Type:        types.NotificationTypeWebhook,
		EventType:   info.EventType,
		Project:     info.Project,
		Branch:      info.Branch,
		User:        info.Actor,
		Timestamp:   info.Timestamp,
		Data:        buildEventData(info, p),
		TargetUsers: targets,
		Raw:         raw,
	}
}

func buildEventData(info types.EventInfo, p *types.WebhookPayload) types.EventData {
	oa := p.ObjectAttributes
	if oa == nil {
		oa = &types.ObjectAttributes{}
	}

	switch info.EventType {
	case types.EventTypePush:
		messages := make([]string, 0, 3)
		for _, c := range p.Commits {
			if len(messages) == 3 {
				break
			}
			messages = append(messages, c.Message)
		}
		return types.PushData{
			Commits:        len(p.Commits),
			CommitMessages: messages,
		}

	case types.EventTypeMergeRequest:
		return types.MergeRequestData{
			Action:       oa.Action,
			Title:        oa.Title,
			State:        oa.State,
			SourceBranch: oa.SourceBranch,
			TargetBranch: oa.TargetBranch,
			URL:          event.ResolveURL(oa.URL, info.InstanceBaseURL),
			WebURL:       event.ResolveURL(oa.WebURL, info.InstanceBaseURL),
		}

	case types.EventTypeIssue:
		return types.IssueData{
			Action: oa.Action,
			Title:  oa.Title,
			State:  oa.State,
			URL:    event.ResolveURL(oa.URL, info.InstanceBaseURL),
		}

	case types.EventTypePipeline:
		pipelineURL := completePipelineURL(oa, p)
		resolved := event.ResolveURL(pipelineURL, info.InstanceBaseURL)
		projectWebURL := ""
		if p.Project != nil {
			projectWebURL = event.ResolveURL(p.Project.WebURL, info.InstanceBaseURL)
		}
		return types.PipelineData{
			Status:        oa.Status,
			Stage:         oa.Stage,
			Ref:           oa.Ref,
			ID:            oa.ID,
			URL:           resolved,
			WebURL:        resolved,
			ProjectWebURL: projectWebURL,
		}

	default:
		return types.GenericData{ObjectKind: p.ObjectKind}
	}
}

// completePipelineURL returns an absolute pipeline link. GitLab sometimes
// sends object_attributes.web_url as a bare path, in which case the link is
// rebuilt from the project web URL and the pipeline id.
func completePipelineURL(oa *types.ObjectAttributes, p *types.WebhookPayload) string {
	if len(oa.WebURL) >= 4 && oa.WebURL[:4] == "http" {
		return oa.WebURL
	}
	if p.Project != nil && p.Project.WebURL != "" && oa.ID != 0 {
		base := p.Project.WebURL
		for len(base) > 0 && base[len(base)-1] == '/' {
			base = base[:len(base)-1]
		}
		return fmt.Sprintf("%s/-/pipelines/%d", base, oa.ID)
	}
	if oa.WebURL != "" {
		return oa.WebURL
	}
	return oa.URL
}
