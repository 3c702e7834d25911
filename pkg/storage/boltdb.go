package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gitping/gitping/pkg/types"
)

var bucketEvents = []byte("events")

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store under dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "gitping.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketEvents, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// AppendEvent persists one processed webhook envelope. Keys are zero-padded
// bucket sequence numbers, so key order is arrival order.
func (s *BoltStore) AppendEvent(ev *types.StoredEvent) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		ev.Seq = seq
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return b.Put(eventKey(seq), data)
	})
}

// RecentEvents returns up to limit stored events, newest first
func (s *BoltStore) RecentEvents(limit int) ([]*types.StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []*types.StoredEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil && len(events) < limit; k, v = c.Prev() {
			var ev types.StoredEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			events = append(events, &ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// PruneBefore removes events received before cutoff. Keys are in arrival
// order, so the scan stops at the first retained event.
func (s *BoltStore) PruneBefore(cutoff time.Time) (int, error) {
	pruned := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var ev types.StoredEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if !ev.ReceivedAt.Before(cutoff) {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}
