package realtime

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/model"
)

// Delivery reports what a single notify reached. Push is at-most-once; a
// zero Delivery means the recipient will only see the message via pull.
type Delivery struct {
	RoomPushes int
	ChatAlert  bool
	Alert      bool
}

func (d Delivery) Pushed() bool {
	return d.RoomPushes > 0 || d.ChatAlert || d.Alert
}

type MessageAlert struct {
	Message model.MessageSummary `json:"message"`
	Unread  int                  `json:"unread"`
}

// Dispatcher pushes new-message and friend-request events to live sessions.
type Dispatcher struct {
	hub     *Hub
	metrics *metrics.Metrics
}

func NewDispatcher(hub *Hub, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{hub: hub, metrics: m}
}

// Notify delivers a freshly persisted message. The updated chat is broadcast
// to the chat's room as receive_message. The recipient gets a message_alert
// on the notifications channel, and on the chat channel when that session is
// looking at a different chat. The summary is kept in the pending buffer
// until the recipient reads or dismisses it.
// The chat-channel receive_message push is scoped to the chat's room.
func (d *Dispatcher) Notify(ctx context.Context, recipientID string, msg *model.Message, view *model.ChatView) Delivery {
	var delivery Delivery
	summary := msg.Summary()

	d.hub.pending.Record(recipientID, summary)
	d.metrics.SetPending(d.hub.pending.Size())

	receive, err := NewEvent(EventReceiveMessage, view)
	if err != nil {
		log.Error().Err(err).Str("chatId", view.ID).Msg("failed to encode chat")
		return delivery
	}
	for _, conn := range d.hub.rooms.Members(view.ID) {
		if d.push(conn, receive) {
			delivery.RoomPushes++
		}
	}

	alert, err := NewEvent(EventMessageAlert, MessageAlert{
		Message: summary,
		Unread:  d.hub.pending.Len(recipientID),
	})
	if err != nil {
		log.Error().Err(err).Str("messageId", msg.ID).Msg("failed to encode message alert")
		return delivery
	}

	if conn := d.hub.registry.Lookup(recipientID, model.ChannelChat); conn != nil {
		if d.hub.rooms.RoomOf(conn) != view.ID {
			delivery.ChatAlert = d.push(conn, alert)
		}
	}
	if conn := d.hub.registry.Lookup(recipientID, model.ChannelNotifications); conn != nil {
		delivery.Alert = d.push(conn, alert)
	} else {
		d.metrics.ObservePush(EventMessageAlert, metrics.PushOffline)
	}

	log.Debug().
		Str("recipientId", recipientID).
		Str("chatId", view.ID).
		Str("messageId", msg.ID).
		Int("roomPushes", delivery.RoomPushes).
		Bool("chatAlert", delivery.ChatAlert).
		Bool("alert", delivery.Alert).
		Msg("message dispatched")
	return delivery
}

// NotifyFriendRequest pushes notification_alert to the user's notifications
// session. It reports whether a push was queued.
func (d *Dispatcher) NotifyFriendRequest(ctx context.Context, userID string) bool {
	conn := d.hub.registry.Lookup(userID, model.ChannelNotifications)
	if conn == nil {
		d.metrics.ObservePush(EventNotificationAlert, metrics.PushOffline)
		return false
	}
	event, _ := NewEvent(EventNotificationAlert, nil)
	return d.push(conn, event)
}

func (d *Dispatcher) push(conn *Conn, event Event) bool {
	if conn.Push(event) {
		d.metrics.ObservePush(event.Type, metrics.PushDelivered)
		return true
	}
	d.metrics.ObservePush(event.Type, metrics.PushDropped)
	log.Warn().
		Str("userId", conn.UserID).
		Str("connId", conn.ID).
		Str("event", event.Type).
		Msg("realtime push dropped")
	return false
}
