package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAuthFailure       EventType = "auth_failure"
	EventHandshakeFailure  EventType = "handshake_failure"
	EventSessionRegister   EventType = "session_register"
	EventSessionReplace    EventType = "session_replace"
	EventSessionEvict      EventType = "session_evict"
	EventSessionUnregister EventType = "session_unregister"
	EventRateLimitExceed   EventType = "rate_limit_exceeded"
	EventParticipantDenied EventType = "participant_denied"
)

type Event struct {
	Type      EventType
	UserID    string
	ConnID    string
	Channel   string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	l := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		l = l.With().Str("user_id", event.UserID).Logger()
	}
	if event.ConnID != "" {
		l = l.With().Str("conn_id", event.ConnID).Logger()
	}
	if event.Channel != "" {
		l = l.With().Str("channel", event.Channel).Logger()
	}
	if event.IP != "" {
		l = l.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		l = l.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := l.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case time.Duration:
		return e.Dur(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

// ClientIP prefers proxy headers over the socket address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
