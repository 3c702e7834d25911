package storage

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitping/gitping/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storedEvent(project string, receivedAt time.Time) *types.StoredEvent {
	return &types.StoredEvent{
		EventType:  types.EventTypePush,
		Project:    project,
		Branch:     "refs/heads/main",
		Actor:      "Jamie",
		ReceivedAt: receivedAt,
		Raw:        json.RawMessage(`{"object_kind":"push"}`),
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	store := newTestStore(t)

	first := storedEvent("a", time.Now())
	second := storedEvent("b", time.Now())
	require.NoError(t, store.AppendEvent(first))
	require.NoError(t, store.AppendEvent(second))

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendEvent(storedEvent(fmt.Sprintf("p%d", i), time.Now())))
	}

	events, err := store.RecentEvents(3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "p4", events[0].Project)
	assert.Equal(t, "p3", events[1].Project)
	assert.Equal(t, "p2", events[2].Project)
}

func TestRecentEventsEmptyStore(t *testing.T) {
	store := newTestStore(t)

	events, err := store.RecentEvents(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecentEventsDefaultLimit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AppendEvent(storedEvent("only", time.Now())))

	events, err := store.RecentEvents(0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, types.EventTypePush, events[0].EventType)
}

func TestPruneBefore(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	require.NoError(t, store.AppendEvent(storedEvent("old-1", now.Add(-48*time.Hour))))
	require.NoError(t, store.AppendEvent(storedEvent("old-2", now.Add(-25*time.Hour))))
	require.NoError(t, store.AppendEvent(storedEvent("fresh", now)))

	pruned, err := store.PruneBefore(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	events, err := store.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fresh", events[0].Project)
}

func TestPruneBeforeNothingToPrune(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AppendEvent(storedEvent("fresh", time.Now())))

	pruned, err := store.PruneBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, pruned)
}
