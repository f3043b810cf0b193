package realtime

import (
	"encoding/json"
)

// Server to client events.
const (
	EventConnected         = "connected"
	EventNotificationAlert = "notification_alert"
	EventMessageAlert      = "message_alert"
	EventReceiveMessage    = "receive_message"
	EventLoadChat          = "load_chat"
	EventLoadNewMessages   = "load_new_messages"
	EventOops              = "oops"
)

// Client to server events.
const (
	EventSubscribeAlerts  = "subscribe_alerts"
	EventOpenMessagesMenu = "open_messages_menu"
	EventDismissMessage   = "dismiss_message"
	EventSubscribeChat    = "subscribe_chat"
	EventOpenChat         = "open_chat"
	EventSendMessage      = "send_message"
	EventMarkRead         = "mark_read"
)

// Event is the envelope for every frame on both channels.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType string, data any) (Event, error) {
	if data == nil {
		return Event{Type: eventType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}

// Decode unmarshals the event payload into v. An empty payload leaves v untouched.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

type OopsPayload struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ConnectedPayload struct {
	ConnID  string `json:"connId"`
	UserID  string `json:"userId"`
	Channel string `json:"channel"`
}
