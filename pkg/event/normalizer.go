package event

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gitping/gitping/pkg/types"
)

// GitLab webhook headers
const (
	HeaderEvent    = "X-Gitlab-Event"
	HeaderToken    = "X-Gitlab-Token"
	HeaderInstance = "X-Gitlab-Instance"
)

// BaseURLHinter supplies a subscriber-reported GitLab base URL used when the
// inbound event carries none that a browser could reach. The registry
// satisfies this.
type BaseURLHinter interface {
	AnyConnectedBaseURL() string
}

// Normalizer turns a raw webhook payload plus headers into the canonical
// EventInfo record. Malformed input degrades to placeholder values; it never
// fails a dispatch.
type Normalizer struct {
	internalPatterns []string
	hints            BaseURLHinter
}

// NewNormalizer creates a Normalizer. internalPatterns lists hostname
// substrings that mark an instance URL as internal (unreachable from the
// subscriber's browser).
func NewNormalizer(internalPatterns []string, hints BaseURLHinter) *Normalizer {
	return &Normalizer{internalPatterns: internalPatterns, hints: hints}
}

// EventTypeFromHeader maps the X-Gitlab-Event header to the canonical event
// type; unrecognized values map to the generic type.
func EventTypeFromHeader(header string) types.EventType {
	switch header {
	case "Push Hook":
		return types.EventTypePush
	case "Merge Request Hook":
		return types.EventTypeMergeRequest
	case "Issue Hook":
		return types.EventTypeIssue
	case "Pipeline Hook":
		return types.EventTypePipeline
	default:
		return types.EventTypeGeneric
	}
}

// Normalize extracts the canonical event record from a decoded payload and
// the request headers.
func (n *Normalizer) Normalize(p *types.WebhookPayload, headers http.Header) types.EventInfo {
	return types.EventInfo{
		EventType:       EventTypeFromHeader(headers.Get(HeaderEvent)),
		Project:         projectName(p),
		Branch:          branchName(p),
		Actor:           actorName(p),
		ActorID:         actorID(p),
		Timestamp:       time.Now().UTC(),
		InstanceBaseURL: n.ResolveInstanceURL(headers.Get(HeaderInstance)),
	}
}

// ResolveInstanceURL picks the GitLab base URL subscribers should see.
// The explicit instance header wins unless it looks internal; then a
// connected subscriber's hint is preferred, with the raw header as the last
// resort.
func (n *Normalizer) ResolveInstanceURL(rawInstance string) string {
	raw := strings.TrimRight(strings.TrimSpace(rawInstance), "/")
	if !n.isInternal(raw) {
		return raw
	}
	if n.hints != nil {
		if hint := strings.TrimRight(n.hints.AnyConnectedBaseURL(), "/"); hint != "" {
			return hint
		}
	}
	return raw
}

// isInternal reports whether an instance URL cannot be reached from a
// subscriber's browser. Empty always counts as internal.
func (n *Normalizer) isInternal(url string) bool {
	if url == "" {
		return true
	}
	for _, pattern := range n.internalPatterns {
		if pattern != "" && strings.Contains(url, pattern) {
			return true
		}
	}
	return false
}

func projectName(p *types.WebhookPayload) string {
	if p.Project != nil && p.Project.Name != "" {
		return p.Project.Name
	}
	if p.Repository != nil && p.Repository.Name != "" {
		return p.Repository.Name
	}
	return "unknown"
}

func branchName(p *types.WebhookPayload) string {
	if p.Ref != "" {
		return p.Ref
	}
	if p.ObjectAttributes != nil && p.ObjectAttributes.Ref != "" {
		return p.ObjectAttributes.Ref
	}
	return ""
}

func actorName(p *types.WebhookPayload) string {
	if p.User != nil && p.User.Name != "" {
		return p.User.Name
	}
	if p.UserName != "" {
		return p.UserName
	}
	if p.UserUsername != "" {
		return p.UserUsername
	}
	return "Unknown"
}

func actorID(p *types.WebhookPayload) string {
	if p.User != nil && p.User.ID != 0 {
		return strconv.FormatInt(p.User.ID, 10)
	}
	if p.UserID != 0 {
		return strconv.FormatInt(p.UserID, 10)
	}
	return ""
}
