package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitping/gitping/pkg/chat"
	"github.com/gitping/gitping/pkg/config"
	"github.com/gitping/gitping/pkg/dispatch"
	"github.com/gitping/gitping/pkg/event"
	"github.com/gitping/gitping/pkg/log"
	"github.com/gitping/gitping/pkg/registry"
	"github.com/gitping/gitping/pkg/storage"
	"github.com/gitping/gitping/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	m.Run()
}

// memConn is a minimal in-memory registry.Connection
type memConn struct {
	id   string
	mu   sync.Mutex
	sent [][]byte
	done chan struct{}
	once sync.Once
}

func newMemConn(id string) *memConn {
	return &memConn{id: id, done: make(chan struct{})}
}

func (c *memConn) ID() string { return c.id }
func (c *memConn) Send(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(p))
	copy(buf, p)
	c.sent = append(c.sent, buf)
	return nil
}
func (c *memConn) Done() <-chan struct{} { return c.done }
func (c *memConn) Close()                { c.once.Do(func() { close(c.done) }) }

func (c *memConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type testEnv struct {
	server   *Server
	registry *registry.Registry
	store    storage.Store
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	reg := registry.New()
	var store storage.Store
	if cfg.History.Enabled {
		bs, err := storage.NewBoltStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = bs.Close() })
		store = bs
	}

	normalizer := event.NewNormalizer(cfg.Gitlab.InternalHostPatterns, reg)
	processor := dispatch.NewProcessor(normalizer, dispatch.NewDispatcher(reg), chat.New(cfg.Chat.WebhookURL, cfg.Chat.RatePerSec), store)

	return &testEnv{
		server:   NewServer(cfg, reg, processor, store),
		registry: reg,
		store:    store,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("success", func(t *testing.T) {
		body := `{"userId": "u1", "userName": "Jamie", "gitlabBaseUrl": "https://gitlab.example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/api/clients/register", bytes.NewBufferString(body))
		rec := env.do(req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "u1", resp["userId"])

		assert.Equal(t, 1, env.registry.Stats().TotalClients)
	})

	t.Run("missing userId", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/clients/register", bytes.NewBufferString(`{"userName": "NoID"}`))
		rec := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/clients/register", bytes.NewBufferString(`{{`))
		rec := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/clients/register", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestClientsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.registry.Register("u1", "Jamie", "agent", ""))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Clients []types.ClientSummary `json:"clients"`
		Stats   types.RegistryStats   `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, "u1", resp.Clients[0].UserID)
	assert.Equal(t, 1, resp.Stats.TotalClients)
	assert.Equal(t, 0, resp.Stats.ConnectedClients)
}

func webhookRequest(body, eventType, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if eventType != "" {
		req.Header.Set(event.HeaderEvent, eventType)
	}
	if token != "" {
		req.Header.Set(event.HeaderToken, token)
	}
	return req
}

func TestWebhookEndpoint(t *testing.T) {
	t.Run("accepted and fanned out", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := newMemConn("c1")
		env.registry.Connect("42", conn, "")
		require.Equal(t, 1, conn.count(), "connected frame")

		body := `{"object_kind": "push", "ref": "refs/heads/main", "user_id": 42, "user_name": "Jamie", "project": {"name": "demo"}}`
		rec := env.do(webhookRequest(body, "Push Hook", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, true, resp["success"])

		// fan-out runs detached from the request
		require.Eventually(t, func() bool {
			return conn.count() == 2
		}, time.Second, 10*time.Millisecond)

		require.Eventually(t, func() bool {
			events, err := env.store.RecentEvents(10)
			return err == nil && len(events) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("token mismatch rejected", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.Webhook.SecretToken = "hush" })
		rec := env.do(webhookRequest(`{}`, "Push Hook", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("matching token accepted", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.Webhook.SecretToken = "hush" })
		rec := env.do(webhookRequest(`{}`, "Push Hook", "hush"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(webhookRequest(`{{{`, "Push Hook", ""))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(httptest.NewRequest(http.MethodGet, "/webhook/gitlab", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestRecentEventsEndpoint(t *testing.T) {
	t.Run("returns stored events", func(t *testing.T) {
		env := newTestEnv(t, nil)
		require.NoError(t, env.store.AppendEvent(&types.StoredEvent{
			EventType:  types.EventTypePush,
			Project:    "demo",
			ReceivedAt: time.Now(),
		}))

		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/events/recent?limit=5", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Events []types.StoredEvent `json:"events"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "demo", resp.Events[0].Project)
	})

	t.Run("history disabled", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.History.Enabled = false })
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/events/recent", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodOptions, "/api/clients/register", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Gitlab-Token")
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
