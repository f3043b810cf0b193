package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/audit"
	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/model"
)

var (
	ErrHubClosed  = errors.New("realtime hub closed")
	ErrConnClosed = errors.New("realtime connection closed")
)

// Hub owns the session registry, chat rooms and pending buffer for the
// lifetime of the server.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	pending  *PendingBuffer
	metrics  *metrics.Metrics
	closed   atomic.Bool
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		registry: NewRegistry(),
		rooms:    NewRooms(),
		pending:  NewPendingBuffer(),
		metrics:  m,
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Rooms() *Rooms {
	return h.rooms
}

func (h *Hub) Pending() *PendingBuffer {
	return h.pending
}

// Register makes conn the user's session on its channel. A previous session
// for the same user and channel is closed. A closed conn, replaced or
// evicted, cannot take the slot back.
func (h *Hub) Register(ctx context.Context, conn *Conn) error {
	if h.closed.Load() {
		return ErrHubClosed
	}
	if conn.Closed() {
		return ErrConnClosed
	}

	prev := h.registry.Register(conn)
	if prev != nil {
		h.rooms.Leave(prev)
		prev.Close()
		h.metrics.ObserveEviction("replaced")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventSessionReplace,
			UserID:  conn.UserID,
			ConnID:  conn.ID,
			Channel: string(conn.Channel),
			Details: map[string]interface{}{"replaced_conn_id": prev.ID},
		})
	} else {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventSessionRegister,
			UserID:  conn.UserID,
			ConnID:  conn.ID,
			Channel: string(conn.Channel),
		})
	}
	h.updateSessionGauge(conn.Channel)

	log.Info().
		Str("userId", conn.UserID).
		Str("connId", conn.ID).
		Str("channel", string(conn.Channel)).
		Int("sessionCount", h.registry.Count(conn.Channel)).
		Msg("realtime session registered")
	return nil
}

// Unregister removes conn on disconnect. Unknown or already replaced handles
// are ignored.
func (h *Hub) Unregister(ctx context.Context, conn *Conn) {
	h.rooms.Leave(conn)
	conn.Close()
	if !h.registry.Unregister(conn) {
		return
	}
	h.updateSessionGauge(conn.Channel)

	audit.Log(ctx, audit.Event{
		Type:    audit.EventSessionUnregister,
		UserID:  conn.UserID,
		ConnID:  conn.ID,
		Channel: string(conn.Channel),
	})
	log.Info().
		Str("userId", conn.UserID).
		Str("connId", conn.ID).
		Str("channel", string(conn.Channel)).
		Msg("realtime session unregistered")
}

// JoinRoom places a chat-channel connection in the room for chatID.
func (h *Hub) JoinRoom(conn *Conn, chatID string) {
	prev := h.rooms.Join(chatID, conn)
	log.Debug().
		Str("connId", conn.ID).
		Str("chatId", chatID).
		Str("previousChatId", prev).
		Msg("joined chat room")
}

// EvictStale closes sessions with no inbound activity within idle.
func (h *Hub) EvictStale(ctx context.Context, idle time.Duration) (int64, error) {
	stale := h.registry.Stale(idle, time.Now())
	var evicted int64
	for _, conn := range stale {
		h.rooms.Leave(conn)
		conn.Close()
		if !h.registry.Unregister(conn) {
			continue
		}
		evicted++
		h.metrics.ObserveEviction("idle")
		audit.Log(ctx, audit.Event{
			Type:    audit.EventSessionEvict,
			UserID:  conn.UserID,
			ConnID:  conn.ID,
			Channel: string(conn.Channel),
			Details: map[string]interface{}{"idle": time.Since(conn.LastSeen())},
		})
	}
	for _, ch := range model.Channels {
		h.updateSessionGauge(ch)
	}
	return evicted, nil
}

// PrunePending drops backlog entries older than ttl.
func (h *Hub) PrunePending(_ context.Context, ttl time.Duration) (int64, error) {
	removed := h.pending.Prune(ttl)
	h.metrics.SetPending(h.pending.Size())
	return int64(removed), nil
}

// Close disconnects every session. Later registrations fail with ErrHubClosed.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	conns := h.registry.Drain()
	for _, conn := range conns {
		h.rooms.Leave(conn)
		conn.Close()
	}
	for _, ch := range model.Channels {
		h.updateSessionGauge(ch)
	}
	log.Info().Int("sessionCount", len(conns)).Msg("realtime hub closed")
}

func (h *Hub) updateSessionGauge(ch model.Channel) {
	h.metrics.SetSessions(string(ch), h.registry.Count(ch))
}
