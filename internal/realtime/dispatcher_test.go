package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/model"
)

func newTestMessage() (*model.Message, *model.ChatView) {
	msg := &model.Message{
		ID:        "m1",
		ChatRef:   "chat-1",
		AuthorID:  "user-a",
		Text:      "hi",
		CreatedAt: time.Now(),
	}
	chat := &model.Chat{ID: "chat-1", ParticipantA: "user-a", ParticipantB: "user-b"}
	view := model.NewChatView(chat, []model.MessageView{{Message: *msg}})
	return msg, view
}

func drainEvent(t *testing.T, c *Conn) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	default:
		t.Fatalf("no event queued for %s", c.UserID)
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event %s for %s", ev.Type, c.UserID)
	default:
	}
}

func TestDispatcher_NoLiveSession(t *testing.T) {
	hub := NewHub(metrics.New())
	d := NewDispatcher(hub, metrics.New())
	msg, view := newTestMessage()

	var delivery Delivery
	assert.NotPanics(t, func() {
		delivery = d.Notify(context.Background(), "user-b", msg, view)
	})
	assert.False(t, delivery.Pushed())
	assert.Equal(t, 0, hub.Registry().Total())
	assert.Equal(t, 0, hub.Rooms().Size("chat-1"))

	t.Run("summary kept for pull", func(t *testing.T) {
		assert.Equal(t, []string{"m1"}, ids(hub.Pending().Drain("user-b")))
	})
}

func TestDispatcher_RecipientInRoom(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	d := NewDispatcher(hub, nil)

	sender := NewConn("user-a", model.ChannelChat, 4)
	recipient := NewConn("user-b", model.ChannelChat, 4)
	alerts := NewConn("user-b", model.ChannelNotifications, 4)
	for _, c := range []*Conn{sender, recipient, alerts} {
		require.NoError(t, hub.Register(ctx, c))
	}
	hub.JoinRoom(sender, "chat-1")
	hub.JoinRoom(recipient, "chat-1")

	msg, view := newTestMessage()
	delivery := d.Notify(ctx, "user-b", msg, view)

	assert.Equal(t, 2, delivery.RoomPushes)
	assert.False(t, delivery.ChatAlert)
	assert.True(t, delivery.Alert)

	ev := drainEvent(t, recipient)
	assert.Equal(t, EventReceiveMessage, ev.Type)
	var got model.ChatView
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, []string{"m1"}, got.MessageIDs())
	assertNoEvent(t, recipient)

	assert.Equal(t, EventReceiveMessage, drainEvent(t, sender).Type)

	alert := drainEvent(t, alerts)
	assert.Equal(t, EventMessageAlert, alert.Type)
	var payload MessageAlert
	require.NoError(t, alert.Decode(&payload))
	assert.Equal(t, "m1", payload.Message.ID)
	assert.Equal(t, 1, payload.Unread)
}

func TestDispatcher_RecipientInOtherRoom(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	d := NewDispatcher(hub, nil)

	recipient := NewConn("user-b", model.ChannelChat, 4)
	require.NoError(t, hub.Register(ctx, recipient))
	hub.JoinRoom(recipient, "chat-other")

	msg, view := newTestMessage()
	delivery := d.Notify(ctx, "user-b", msg, view)

	assert.Equal(t, 0, delivery.RoomPushes)
	assert.True(t, delivery.ChatAlert)
	assert.False(t, delivery.Alert)
	assert.Equal(t, EventMessageAlert, drainEvent(t, recipient).Type)
}

func TestDispatcher_DeadConnection(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	d := NewDispatcher(hub, nil)

	alerts := NewConn("user-b", model.ChannelNotifications, 4)
	require.NoError(t, hub.Register(ctx, alerts))
	alerts.Close()

	msg, view := newTestMessage()
	var delivery Delivery
	assert.NotPanics(t, func() {
		delivery = d.Notify(ctx, "user-b", msg, view)
	})
	assert.False(t, delivery.Alert)
}

func TestDispatcher_NotifyFriendRequest(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	d := NewDispatcher(hub, nil)

	assert.False(t, d.NotifyFriendRequest(ctx, "user-b"))

	alerts := NewConn("user-b", model.ChannelNotifications, 1)
	require.NoError(t, hub.Register(ctx, alerts))

	assert.True(t, d.NotifyFriendRequest(ctx, "user-b"))
	assert.Equal(t, EventNotificationAlert, drainEvent(t, alerts).Type)
}
