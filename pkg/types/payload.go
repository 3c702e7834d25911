package types

import "encoding/json"

// WebhookPayload models the subset of a GitLab webhook body that routing and
// notification shaping read. The full body is retained separately as raw JSON
// for downstream formatters; fields not listed here are simply not decoded.
type WebhookPayload struct {
	ObjectKind       string            `json:"object_kind"`
	Ref              string            `json:"ref"`
	UserID           int64             `json:"user_id"`
	UserName         string            `json:"user_name"`
	UserUsername     string            `json:"user_username"`
	User             *WebhookUser      `json:"user"`
	Project          *WebhookProject   `json:"project"`
	Repository       *WebhookRepo      `json:"repository"`
	Commits          []WebhookCommit   `json:"commits"`
	ObjectAttributes *ObjectAttributes `json:"object_attributes"`
	Assignee         *WebhookUser      `json:"assignee"`
	Assignees        []WebhookUser     `json:"assignees"`
	Reviewers        []WebhookUser     `json:"reviewers"`

	// TargetUsers is a relay-specific extension: an upstream sender may name
	// the subscribers to notify directly, overriding derivation. GitLab ids
	// are numeric and custom ids are strings, so elements are kept loose.
	TargetUsers []any `json:"targetUsers"`
}

// WebhookUser is a GitLab user object as embedded in webhook payloads
type WebhookUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// WebhookProject identifies the project an event belongs to
type WebhookProject struct {
	Name   string `json:"name"`
	WebURL string `json:"web_url"`
}

// WebhookRepo is the legacy repository block older GitLab versions send
type WebhookRepo struct {
	Name string `json:"name"`
}

// WebhookCommit is one commit entry in a push event
type WebhookCommit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ObjectAttributes is the polymorphic object_attributes block. GitLab reuses
// it across merge request, issue and pipeline events with different fields
// populated.
type ObjectAttributes struct {
	ID           int64   `json:"id"`
	IID          int64   `json:"iid"`
	Action       string  `json:"action"`
	Title        string  `json:"title"`
	State        string  `json:"state"`
	Status       string  `json:"status"`
	Stage        string  `json:"stage"`
	Ref          string  `json:"ref"`
	SourceBranch string  `json:"source_branch"`
	TargetBranch string  `json:"target_branch"`
	URL          string  `json:"url"`
	WebURL       string  `json:"web_url"`
	AuthorID     int64   `json:"author_id"`
	AssigneeID   int64   `json:"assignee_id"`
	UserID       int64   `json:"user_id"`
	AssigneeIDs  []int64 `json:"assignee_ids"`
	ReviewerIDs  []int64 `json:"reviewer_ids"`
}

// ParsePayload decodes a raw webhook body into WebhookPayload. A decode
// failure returns an empty payload rather than an error: malformed input is
// normalized to placeholders downstream, never fatal to dispatch.
func ParsePayload(raw json.RawMessage) *WebhookPayload {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return &WebhookPayload{}
	}
	return &p
}
