package types

import (
	"encoding/json"
	"time"
)

// EventType classifies an inbound GitLab webhook event
type EventType string

const (
	EventTypePush         EventType = "push"
	EventTypeMergeRequest EventType = "merge_request"
	EventTypeIssue        EventType = "issue"
	EventTypePipeline     EventType = "pipeline"
	EventTypeGeneric      EventType = "generic"
)

// Notification type discriminators
const (
	NotificationTypeWebhook   = "webhook"
	NotificationTypeConnected = "connected"
)

// Dispatch failure reasons
const (
	ReasonNoTargetUsers       = "no_target_users"
	ReasonClientsNotConnected = "clients_not_connected"
)

// EventInfo is the canonical record extracted from a raw webhook payload
type EventInfo struct {
	EventType       EventType `json:"eventType"`
	Project         string    `json:"project"`
	Branch          string    `json:"branch"`
	Actor           string    `json:"user"`
	ActorID         string    `json:"userId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	InstanceBaseURL string    `json:"gitlabInstance,omitempty"`
}

// EventData is the event-type-specific payload carried inside a Notification.
// Exactly one concrete variant exists per event type; unrecognized events use
// GenericData.
type EventData interface {
	eventData()
}

// PushData carries push event details
type PushData struct {
	Commits        int      `json:"commits"`
	CommitMessages []string `json:"commitMessages"`
}

// MergeRequestData carries merge request event details
type MergeRequestData struct {
	Action       string `json:"action,omitempty"`
	Title        string `json:"title,omitempty"`
	State        string `json:"state,omitempty"`
	SourceBranch string `json:"sourceBranch,omitempty"`
	TargetBranch string `json:"targetBranch,omitempty"`
	URL          string `json:"url,omitempty"`
	WebURL       string `json:"webUrl,omitempty"`
}

// IssueData carries issue event details
type IssueData struct {
	Action string `json:"action,omitempty"`
	Title  string `json:"title,omitempty"`
	State  string `json:"state,omitempty"`
	URL    string `json:"url,omitempty"`
}

// PipelineData carries pipeline event details. URL and WebURL are always
// absolute; relative pipeline links are completed from the project web URL.
type PipelineData struct {
	Status        string `json:"status,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Ref           string `json:"ref,omitempty"`
	ID            int64  `json:"id,omitempty"`
	URL           string `json:"url,omitempty"`
	WebURL        string `json:"webUrl,omitempty"`
	ProjectWebURL string `json:"projectWebUrl,omitempty"`
}

// GenericData carries unrecognized event details
type GenericData struct {
	ObjectKind string `json:"objectKind,omitempty"`
}

func (PushData) eventData()         {}
func (MergeRequestData) eventData() {}
func (IssueData) eventData()        {}
func (PipelineData) eventData()     {}
func (GenericData) eventData()      {}

// Notification is the outbound unit pushed to a subscriber. Every delivered
// webhook-type notification corresponds to exactly one normalized event; the
// connected-type notification is synthesized once per new connection.
type Notification struct {
	Type        string          `json:"type"`
	EventType   EventType       `json:"eventType,omitempty"`
	Project     string          `json:"project,omitempty"`
	Branch      string          `json:"branch,omitempty"`
	User        string          `json:"user,omitempty"`
	Message     string          `json:"message,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        EventData       `json:"data,omitempty"`
	TargetUsers []string        `json:"targetUsers,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// DispatchResult reports the outcome of fanning one event out to subscribers
type DispatchResult struct {
	Success   bool     `json:"success"`
	SentCount int      `json:"sentCount,omitempty"`
	Targets   []string `json:"targets,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ClientSummary is a read-only snapshot of one registered subscriber
type ClientSummary struct {
	UserID          string    `json:"userId"`
	UserName        string    `json:"userName"`
	UserAgent       string    `json:"userAgent,omitempty"`
	GitlabBaseURL   string    `json:"gitlabBaseUrl,omitempty"`
	RegisteredAt    time.Time `json:"connectedAt"`
	LastSeen        time.Time `json:"lastSeen"`
	IsConnected     bool      `json:"isConnected"`
	ConnectionCount int       `json:"connectionCount"`
}

// RegistryStats summarizes registry occupancy. ConnectedClients counts
// subscribers with at least one open connection; TotalClients counts every
// subscriber ever registered in this process.
type RegistryStats struct {
	TotalClients     int `json:"totalClients"`
	ConnectedClients int `json:"connectedClients"`
	TotalConnections int `json:"totalConnections"`
}

// StoredEvent is the audit-log envelope persisted for each processed webhook
type StoredEvent struct {
	Seq        uint64          `json:"seq"`
	EventType  EventType       `json:"eventType"`
	Project    string          `json:"project,omitempty"`
	Branch     string          `json:"branch,omitempty"`
	Actor      string          `json:"user,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}
