package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/odinbook/chat-server/internal/model"
)

// Conn is the handle for one live transport session. The transport owns the
// socket; the hub only queues events for it.
type Conn struct {
	ID      string
	UserID  string
	Channel model.Channel

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
	lastSeen  atomic.Int64
}

func NewConn(userID string, channel model.Channel, buffer int) *Conn {
	c := &Conn{
		ID:      uuid.NewString(),
		UserID:  userID,
		Channel: channel,
		send:    make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	c.Touch()
	return c
}

// Push queues an event without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *Conn) Push(event Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Events is drained by the transport's write loop.
func (c *Conn) Events() <-chan Event {
	return c.send
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Touch records inbound activity (frames or pongs).
func (c *Conn) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Conn) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}
