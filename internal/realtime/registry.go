package realtime

import (
	"sync"
	"time"

	"github.com/odinbook/chat-server/internal/model"
)

// Registry maps (user, channel) to at most one live connection.
type Registry struct {
	mu     sync.RWMutex
	byUser map[model.Channel]map[string]*Conn
	byID   map[string]*Conn
}

func NewRegistry() *Registry {
	r := &Registry{
		byUser: make(map[model.Channel]map[string]*Conn, len(model.Channels)),
		byID:   make(map[string]*Conn),
	}
	for _, ch := range model.Channels {
		r.byUser[ch] = make(map[string]*Conn)
	}
	return r
}

// Register associates conn with its user on its channel and returns the
// connection it replaced, if any. Registering the same handle twice is a no-op.
func (r *Registry) Register(conn *Conn) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byUser[conn.Channel]
	if !ok {
		users = make(map[string]*Conn)
		r.byUser[conn.Channel] = users
	}

	prev := users[conn.UserID]
	if prev == conn {
		return nil
	}
	if prev != nil {
		delete(r.byID, prev.ID)
	}
	users[conn.UserID] = conn
	r.byID[conn.ID] = conn
	return prev
}

// Unregister removes the entry carrying this handle. It reports false when
// the handle is unknown, e.g. because a newer connection already replaced it.
func (r *Registry) Unregister(conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[conn.ID]; !ok {
		return false
	}
	delete(r.byID, conn.ID)
	if users := r.byUser[conn.Channel]; users[conn.UserID] == conn {
		delete(users, conn.UserID)
	}
	return true
}

func (r *Registry) Lookup(userID string, channel model.Channel) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[channel][userID]
}

func (r *Registry) Count(channel model.Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[channel])
}

func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Stale returns registered connections with no inbound activity since now-idle.
func (r *Registry) Stale(idle time.Duration, now time.Time) []*Conn {
	cutoff := now.Add(-idle)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*Conn
	for _, conn := range r.byID {
		if conn.LastSeen().Before(cutoff) {
			stale = append(stale, conn)
		}
	}
	return stale
}

// Drain removes and returns every registered connection.
func (r *Registry) Drain() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]*Conn, 0, len(r.byID))
	for _, conn := range r.byID {
		conns = append(conns, conn)
	}
	r.byID = make(map[string]*Conn)
	for ch := range r.byUser {
		r.byUser[ch] = make(map[string]*Conn)
	}
	return conns
}
