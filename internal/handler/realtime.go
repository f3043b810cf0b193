package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/odinbook/chat-server/internal/audit"
	"github.com/odinbook/chat-server/internal/config"
	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/httputil"
	"github.com/odinbook/chat-server/internal/middleware"
	"github.com/odinbook/chat-server/internal/model"
	"github.com/odinbook/chat-server/internal/realtime"
)

type Authenticator interface {
	Authenticate(r *http.Request) (*middleware.Identity, error)
}

type RealtimeConfig struct {
	AllowedOrigins  []string
	Heartbeat       time.Duration
	IdleTimeout     time.Duration
	SendLimitPerMin int
}

// RealtimeHandler upgrades authenticated requests to WebSocket sessions on
// the notifications and chat channels and routes client events.
type RealtimeHandler struct {
	hub      *realtime.Hub
	auth     Authenticator
	chats    ChatUseCases
	messages MessageUseCases
	limiter  middleware.Limiter
	cfg      RealtimeConfig
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(
	hub *realtime.Hub,
	auth Authenticator,
	chats ChatUseCases,
	messages MessageUseCases,
	limiter middleware.Limiter,
	cfg RealtimeConfig,
) *RealtimeHandler {
	h := &RealtimeHandler{
		hub:      hub,
		auth:     auth,
		chats:    chats,
		messages: messages,
		limiter:  limiter,
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *RealtimeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/alerts", h.serve(model.ChannelNotifications))
	r.Get("/chat", h.serve(model.ChannelChat))

	return r
}

func (h *RealtimeHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || lo.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return lo.ContainsBy(h.cfg.AllowedOrigins, func(allowed string) bool {
		return strings.EqualFold(strings.TrimSuffix(allowed, "/"), u.Scheme+"://"+u.Host)
	})
}

func (h *RealtimeHandler) serve(channel model.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.auth.Authenticate(r)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventHandshakeFailure,
				Channel: string(channel),
				Details: map[string]interface{}{"reason": string(apperrors.GetCode(err))},
			})
			httputil.WriteError(w, err)
			return
		}

		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("userId", identity.UserID).Msg("websocket upgrade failed")
			return
		}

		conn := realtime.NewConn(identity.UserID, channel, config.ConnSendBuffer)
		ctx := middleware.WithIdentity(context.WithoutCancel(r.Context()), identity)

		if err := h.hub.Register(ctx, conn); err != nil {
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(config.ConnWriteTimeout))
			ws.Close()
			return
		}

		s := &wsSession{
			handler:  h,
			ws:       ws,
			conn:     conn,
			identity: identity,
		}
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			s.writePump()
		}()

		connected, _ := realtime.NewEvent(realtime.EventConnected, realtime.ConnectedPayload{
			ConnID:  conn.ID,
			UserID:  identity.UserID,
			Channel: string(channel),
		})
		conn.Push(connected)

		s.readPump(ctx)

		h.hub.Unregister(ctx, conn)
		<-writerDone
	}
}

// wsSession is one upgraded connection. readPump runs on the request
// goroutine; writePump is the only writer to ws.
type wsSession struct {
	handler  *RealtimeHandler
	ws       *websocket.Conn
	conn     *realtime.Conn
	identity *middleware.Identity
}

func (s *wsSession) readPump(ctx context.Context) {
	idle := s.handler.cfg.IdleTimeout

	s.ws.SetReadLimit(config.ConnMaxReadBytes)
	s.ws.SetReadDeadline(time.Now().Add(idle))
	s.ws.SetPongHandler(func(string) error {
		s.conn.Touch()
		return s.ws.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("connId", s.conn.ID).Msg("websocket read failed")
			}
			return
		}
		s.conn.Touch()
		s.ws.SetReadDeadline(time.Now().Add(idle))

		var event realtime.Event
		if err := json.Unmarshal(data, &event); err != nil || event.Type == "" {
			s.oops(apperrors.ValidationError("Malformed event"))
			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, config.RealtimeOpTimeout)
		if err := s.handle(opCtx, event); err != nil {
			s.oops(err)
		}
		cancel()
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(s.handler.cfg.Heartbeat)
	defer func() {
		ticker.Stop()
		s.ws.Close()
	}()

	for {
		select {
		case <-s.conn.Done():
			s.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(config.ConnWriteTimeout))
			return

		case event := <-s.conn.Events():
			s.ws.SetWriteDeadline(time.Now().Add(config.ConnWriteTimeout))
			if err := s.ws.WriteJSON(event); err != nil {
				log.Debug().Err(err).Str("connId", s.conn.ID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(config.ConnWriteTimeout))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Str("connId", s.conn.ID).Msg("heartbeat failed, closing connection")
				return
			}
		}
	}
}

// oops reports a failed client event on the same connection.
func (s *wsSession) oops(err error) {
	appErr := apperrors.Normalize(err)
	if appErr.Kind() == apperrors.KindInternal {
		log.Error().Err(err).Str("userId", s.identity.UserID).Msg("realtime event failed")
	}
	s.reply(realtime.EventOops, realtime.OopsPayload{Code: string(appErr.Code), Error: appErr.Message})
}

func (s *wsSession) reply(eventType string, data any) {
	event, err := realtime.NewEvent(eventType, data)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to encode event")
		return
	}
	if !s.conn.Push(event) {
		log.Warn().Str("connId", s.conn.ID).Str("event", eventType).Msg("reply dropped")
	}
}

type chatTarget struct {
	FriendID     string   `json:"friendId"`
	Participants []string `json:"participants"`
}

// friend picks the other participant from either payload form.
func (t chatTarget) friend(userID string) (string, error) {
	if t.FriendID != "" {
		return t.FriendID, nil
	}
	if len(t.Participants) != 2 {
		return "", apperrors.MissingRequired("friendId")
	}
	pair := model.Pair{A: strings.ToLower(t.Participants[0]), B: strings.ToLower(t.Participants[1])}
	if !pair.Has(userID) {
		return "", apperrors.NotParticipant()
	}
	return pair.Other(userID), nil
}

type messageRef struct {
	MessageID string `json:"messageId"`
}

type sendMessage struct {
	ChatRef string `json:"chatRef"`
	Text    string `json:"text"`
}

func (s *wsSession) handle(ctx context.Context, event realtime.Event) error {
	userID := s.identity.UserID
	channel := s.conn.Channel

	switch {
	case event.Type == realtime.EventSubscribeAlerts && channel == model.ChannelNotifications:
		err := s.handler.hub.Register(ctx, s.conn)
		if errors.Is(err, realtime.ErrConnClosed) {
			return nil
		}
		return err

	case event.Type == realtime.EventOpenMessagesMenu && channel == model.ChannelNotifications:
		s.reply(realtime.EventLoadNewMessages, s.handler.messages.PendingFor(userID))
		return nil

	case event.Type == realtime.EventDismissMessage && channel == model.ChannelNotifications:
		var ref messageRef
		if err := event.Decode(&ref); err != nil {
			return apperrors.ValidationError("Malformed event payload")
		}
		return s.handler.messages.Dismiss(userID, ref.MessageID)

	case event.Type == realtime.EventSubscribeChat && channel == model.ChannelChat:
		var target chatTarget
		if err := event.Decode(&target); err != nil {
			return apperrors.ValidationError("Malformed event payload")
		}
		friendID, err := target.friend(userID)
		if err != nil {
			return err
		}
		chat, err := s.handler.chats.ResolveOrCreate(ctx, userID, friendID)
		if err != nil {
			return err
		}
		s.handler.hub.JoinRoom(s.conn, chat.ID)
		return nil

	case event.Type == realtime.EventOpenChat && channel == model.ChannelChat:
		var target chatTarget
		if err := event.Decode(&target); err != nil {
			return apperrors.ValidationError("Malformed event payload")
		}
		friendID, err := target.friend(userID)
		if err != nil {
			return err
		}
		view, err := s.handler.chats.Open(ctx, userID, friendID)
		if err != nil {
			return err
		}
		s.handler.hub.JoinRoom(s.conn, view.ID)
		s.reply(realtime.EventLoadChat, view)
		return nil

	case event.Type == realtime.EventSendMessage && channel == model.ChannelChat:
		var req sendMessage
		if err := event.Decode(&req); err != nil {
			return apperrors.ValidationError("Malformed event payload")
		}
		if err := s.checkSendLimit(ctx); err != nil {
			return err
		}
		_, err := s.handler.messages.Send(ctx, userID, req.ChatRef, req.Text)
		return err

	case event.Type == realtime.EventMarkRead:
		var ref messageRef
		if err := event.Decode(&ref); err != nil {
			return apperrors.ValidationError("Malformed event payload")
		}
		_, err := s.handler.messages.MarkRead(ctx, userID, ref.MessageID)
		return err

	default:
		return apperrors.ValidationError("Unsupported event " + event.Type + " on " + string(channel) + " channel")
	}
}

func (s *wsSession) checkSendLimit(ctx context.Context) error {
	if s.handler.limiter == nil || s.handler.cfg.SendLimitPerMin <= 0 {
		return nil
	}
	allowed, _, _ := s.handler.limiter.Check(ctx, "send:"+s.identity.UserID, s.handler.cfg.SendLimitPerMin, time.Minute)
	if allowed {
		return nil
	}
	audit.Log(ctx, audit.Event{
		Type:    audit.EventRateLimitExceed,
		UserID:  s.identity.UserID,
		ConnID:  s.conn.ID,
		Channel: string(s.conn.Channel),
		Details: map[string]interface{}{"scope": "send"},
	})
	return apperrors.RateLimitExceeded()
}
