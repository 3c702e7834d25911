package registry

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/metrics"
	"github.com/gitping/gitping/pkg/types"
	"github.com/rs/zerolog"
)

// ErrMissingSubscriberID is returned when a registration carries no
// subscriber identity.
var ErrMissingSubscriberID = errors.New("subscriber id is required")

// Connection is one live streaming transport owned by exactly one subscriber
// for its entire lifetime. Send carries one serialized notification; writes
// on a single connection are ordered by the implementation. Done is closed
// when the underlying transport closes, by either side.
type Connection interface {
	ID() string
	Send(payload []byte) error
	Done() <-chan struct{}
	Close()
}

// subscriberInfo is the per-subscriber metadata retained for the life of the
// process, independent of any open connection.
type subscriberInfo struct {
	userName      string
	userAgent     string
	gitlabBaseURL string
	registeredAt  time.Time
	lastSeen      time.Time
}

// Registry tracks which subscriber is currently reachable and routes
// notifications to their open connections. It exclusively owns the
// subscriber->connections mapping and the metadata map.
type Registry struct {
	mu     sync.Mutex
	conns  map[string][]Connection
	info   map[string]*subscriberInfo
	logger zerolog.Logger
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		conns:  make(map[string][]Connection),
		info:   make(map[string]*subscriberInfo),
		logger: log.WithComponent("registry"),
	}
}

// Register upserts subscriber metadata. It does not affect open connections
// and is idempotent; registering again refreshes the display name, user
// agent, base URL hint and last-seen time.
func (r *Registry) Register(userID, userName, userAgent, gitlabBaseURL string) error {
	if userID == "" {
		return ErrMissingSubscriberID
	}
	if userName == "" {
		userName = userID
	}

	r.mu.Lock()
	now := time.Now()
	info, ok := r.info[userID]
	if !ok {
		info = &subscriberInfo{registeredAt: now}
		r.info[userID] = info
	}
	info.userName = userName
	info.userAgent = userAgent
	if gitlabBaseURL != "" {
		info.gitlabBaseURL = gitlabBaseURL
	}
	info.lastSeen = now
	r.mu.Unlock()

	r.logger.Info().Str("subscriber_id", userID).Str("user_name", userName).Msg("client registered")
	return nil
}

// Connect adds a connection to the subscriber's connection set, creating a
// minimal metadata entry on first use, and immediately confirms the new
// connection with a synthetic connected notification (on this connection
// only). A close observer invokes Disconnect exactly once when the
// connection's transport closes.
func (r *Registry) Connect(userID string, conn Connection, gitlabBaseURL string) {
	r.mu.Lock()
	now := time.Now()
	info, ok := r.info[userID]
	if !ok {
		info = &subscriberInfo{userName: userID, registeredAt: now}
		r.info[userID] = info
	}
	info.lastSeen = now
	if gitlabBaseURL != "" {
		info.gitlabBaseURL = gitlabBaseURL
	}
	r.conns[userID] = append(r.conns[userID], conn)
	total := len(r.conns[userID])
	r.updateGauges()
	r.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	r.logger.Info().
		Str("subscriber_id", userID).
		Str("connection_id", conn.ID()).
		Int("total_connections", total).
		Msg("client connection added")

	go func() {
		<-conn.Done()
		r.Disconnect(userID, conn)
	}()

	// Initial confirmation frame, sent outside the lock.
	connected := &types.Notification{
		Type:      types.NotificationTypeConnected,
		Message:   "connected to server",
		Timestamp: now,
	}
	if payload, err := json.Marshal(connected); err == nil {
		if err := conn.Send(payload); err != nil {
			r.Disconnect(userID, conn)
		}
	}
}

// Disconnect removes a connection from the subscriber's set, deleting the
// set entry when it empties. Subscriber metadata is retained. Safe to call
// more than once for the same connection.
func (r *Registry) Disconnect(userID string, conn Connection) {
	r.mu.Lock()
	conns, ok := r.conns[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	removed := false
	for i, c := range conns {
		if c.ID() == conn.ID() {
			conns = append(conns[:i], conns[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		r.mu.Unlock()
		return
	}
	remaining := len(conns)
	if remaining == 0 {
		delete(r.conns, userID)
	} else {
		r.conns[userID] = conns
	}
	r.updateGauges()
	r.mu.Unlock()

	if remaining == 0 {
		r.logger.Info().Str("subscriber_id", userID).Msg("client disconnected")
	} else {
		r.logger.Info().
			Str("subscriber_id", userID).
			Int("remaining_connections", remaining).
			Msg("client connection removed")
	}
}

// SendTo writes the notification to every open connection of one subscriber
// and returns how many connections accepted the write. A subscriber with no
// open connections yields 0; that is an expected condition, not an error. A
// failing connection is pruned without affecting its siblings.
func (r *Registry) SendTo(userID string, n *types.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to serialize notification")
		return 0
	}
	return r.sendPayload(userID, payload)
}

// SendToMany delivers one notification to each listed subscriber and returns
// the count of subscribers with at least one successful connection write.
func (r *Registry) SendToMany(userIDs []string, n *types.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to serialize notification")
		return 0
	}
	delivered := 0
	for _, id := range userIDs {
		if r.sendPayload(id, payload) > 0 {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll delivers one notification to every subscriber with at least
// one open connection and returns the count of subscribers reached.
func (r *Registry) BroadcastAll(n *types.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to serialize notification")
		return 0
	}

	r.mu.Lock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	delivered := 0
	for _, id := range ids {
		if r.sendPayload(id, payload) > 0 {
			delivered++
		}
	}
	return delivered
}

// sendPayload writes an already-serialized notification to every open
// connection of one subscriber. The connection set is copied out under the
// lock and written outside it, so a slow connection never stalls the
// registry.
func (r *Registry) sendPayload(userID string, payload []byte) int {
	r.mu.Lock()
	conns := r.conns[userID]
	if len(conns) == 0 {
		r.mu.Unlock()
		r.logger.Warn().Str("subscriber_id", userID).Msg("client not connected")
		return 0
	}
	snapshot := make([]Connection, len(conns))
	copy(snapshot, conns)
	r.mu.Unlock()

	sent := 0
	for _, conn := range snapshot {
		if err := conn.Send(payload); err != nil {
			metrics.ConnectionWriteFailures.Inc()
			r.logger.Error().
				Err(err).
				Str("subscriber_id", userID).
				Str("connection_id", conn.ID()).
				Msg("connection write failed, pruning")
			r.Disconnect(userID, conn)
			continue
		}
		sent++
	}

	r.logger.Debug().
		Str("subscriber_id", userID).
		Int("sent_count", sent).
		Int("connection_count", len(snapshot)).
		Msg("notification sent")
	return sent
}

// AnyConnectedBaseURL returns the base URL hint of an arbitrary currently
// connected subscriber, or empty if none is connected or none supplied one.
func (r *Registry) AnyConnectedBaseURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.conns {
		if info, ok := r.info[id]; ok && info.gitlabBaseURL != "" {
			return info.gitlabBaseURL
		}
	}
	return ""
}

// List returns a snapshot summary of every registered subscriber
func (r *Registry) List() []types.ClientSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]types.ClientSummary, 0, len(r.info))
	for id, info := range r.info {
		count := len(r.conns[id])
		list = append(list, types.ClientSummary{
			UserID:          id,
			UserName:        info.userName,
			UserAgent:       info.userAgent,
			GitlabBaseURL:   info.gitlabBaseURL,
			RegisteredAt:    info.registeredAt,
			LastSeen:        info.lastSeen,
			IsConnected:     count > 0,
			ConnectionCount: count,
		})
	}
	return list
}

// Stats returns registry occupancy counters
func (r *Registry) Stats() types.RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, conns := range r.conns {
		total += len(conns)
	}
	return types.RegistryStats{
		TotalClients:     len(r.info),
		ConnectedClients: len(r.conns),
		TotalConnections: total,
	}
}

// updateGauges refreshes the occupancy gauges; callers must hold r.mu.
func (r *Registry) updateGauges() {
	total := 0
	for _, conns := range r.conns {
		total += len(conns)
	}
	metrics.ConnectedSubscribers.Set(float64(len(r.conns)))
	metrics.OpenConnections.Set(float64(total))
}
