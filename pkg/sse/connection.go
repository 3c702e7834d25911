package sse

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrConnectionClosed is returned by Send once the connection has closed
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when the outbound buffer stays full past
	// the bounded enqueue wait; the subscriber is too slow to keep.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is one open server-sent-event connection. Frames enqueued via Send
// are drained by a single writer loop (the HTTP handler goroutine), which
// keeps writes on one connection strictly ordered. Lifecycle is
// Open -> Closing -> Closed; Close is terminal and idempotent, and there is
// no retry or reconnect at this layer.
type Conn struct {
	id          string
	out         chan []byte
	done        chan struct{}
	sendTimeout time.Duration
	closeOnce   sync.Once
}

// NewConn creates an open connection with the given outbound buffer size and
// bounded per-send enqueue wait.
func NewConn(buffer int, sendTimeout time.Duration) *Conn {
	if buffer <= 0 {
		buffer = 32
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Conn{
		id:          uuid.New().String(),
		out:         make(chan []byte, buffer),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
	}
}

// ID returns the connection's unique identity
func (c *Conn) ID() string { return c.id }

// Send enqueues one serialized notification for the writer loop. It blocks
// at most sendTimeout when the buffer is full, then fails so a slow
// subscriber cannot stall fan-out to others.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.out <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-time.After(c.sendTimeout):
		return ErrSendBufferFull
	}
}

// Done is closed when the connection transitions to Closed
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close moves the connection to Closed. Safe to call more than once; the
// registry's close observer fires exactly once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
