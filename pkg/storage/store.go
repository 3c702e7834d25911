package storage

import (
	"time"

	"github.com/gitping/gitping/pkg/types"
)

// Store is the event history interface. The history is an audit log of
// processed webhooks, not delivery state; the registry alone decides who is
// reachable.
type Store interface {
	// AppendEvent persists one processed webhook envelope and assigns its
	// sequence number.
	AppendEvent(ev *types.StoredEvent) error

	// RecentEvents returns up to limit stored events, newest first.
	RecentEvents(limit int) ([]*types.StoredEvent, error)

	// PruneBefore removes events received before cutoff and reports how many
	// were deleted.
	PruneBefore(cutoff time.Time) (int, error)

	// Close closes the store
	Close() error
}
