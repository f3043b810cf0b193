package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/httputil"
	"github.com/odinbook/chat-server/internal/middleware"
)

// APIHandler serves the HTTP side of chats and messages. Every route expects
// an authenticated identity in the request context.
type APIHandler struct {
	chats         ChatUseCases
	messages      MessageUseCases
	notifications FriendRequestNotifier
	sendLimit     func(http.Handler) http.Handler
	internalOnly  func(http.Handler) http.Handler
}

func NewAPIHandler(
	chats ChatUseCases,
	messages MessageUseCases,
	notifications FriendRequestNotifier,
	sendLimit func(http.Handler) http.Handler,
	internalOnly func(http.Handler) http.Handler,
) *APIHandler {
	if sendLimit == nil {
		sendLimit = func(next http.Handler) http.Handler { return next }
	}
	if internalOnly == nil {
		internalOnly = middleware.NewInternalKeyMiddleware("").Handler
	}
	return &APIHandler{
		chats:         chats,
		messages:      messages,
		notifications: notifications,
		sendLimit:     sendLimit,
		internalOnly:  internalOnly,
	}
}

func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/chats", h.ListChats)
	r.Post("/chats", h.OpenChat)
	r.Get("/chats/{chatId}", h.GetChat)

	r.With(h.sendLimit).Post("/messages", h.CreateMessage)
	r.Get("/messages/unread", h.ListUnread)
	r.Post("/messages/{messageId}/read", h.MarkRead)
	r.Get("/messages/pending", h.ListPending)
	r.Delete("/messages/pending/{messageId}", h.DismissPending)

	r.With(h.internalOnly).Post("/notifications/friend-request", h.NotifyFriendRequest)

	return r
}

func requireIdentity(w http.ResponseWriter, r *http.Request) *middleware.Identity {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
	}
	return identity
}

// GET /api/chats
func (h *APIHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	chats, err := h.chats.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views := make([]map[string]any, len(chats))
	for i, chat := range chats {
		views[i] = map[string]any{
			"id":           chat.ID,
			"participants": chat.Participants(),
			"updatedAt":    chat.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": views})
}

// POST /api/chats
// Resolves (creating on first use) the chat with friendId and returns it
// with its messages.
func (h *APIHandler) OpenChat(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req struct {
		FriendID string `json:"friendId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.chats.Open(r.Context(), identity.UserID, req.FriendID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/chats/{chatId}
func (h *APIHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	view, err := h.chats.GetView(r.Context(), chi.URLParam(r, "chatId"), identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /api/messages
func (h *APIHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	var req struct {
		ChatRef string `json:"chatRef"`
		Text    string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	msg, err := h.messages.Send(r.Context(), identity.UserID, req.ChatRef, req.Text)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// GET /api/messages/unread
func (h *APIHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	page := ParsePagination(r)
	ctx := r.Context()

	msgs, err := h.messages.ListUnread(ctx, identity.UserID, page.Limit, page.Offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	total, err := h.messages.CountUnread(ctx, identity.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// POST /api/messages/{messageId}/read
func (h *APIHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	msg, err := h.messages.MarkRead(r.Context(), identity.UserID, chi.URLParam(r, "messageId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GET /api/messages/pending
func (h *APIHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": h.messages.PendingFor(identity.UserID)})
}

// DELETE /api/messages/pending/{messageId}
func (h *APIHandler) DismissPending(w http.ResponseWriter, r *http.Request) {
	identity := requireIdentity(w, r)
	if identity == nil {
		return
	}

	if err := h.messages.Dismiss(identity.UserID, chi.URLParam(r, "messageId")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/notifications/friend-request
// Called by the friend-request flow after it stores a request for userId.
// Restricted to callers holding the internal key.
func (h *APIHandler) NotifyFriendRequest(w http.ResponseWriter, r *http.Request) {
	if requireIdentity(w, r) == nil {
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	pushed, err := h.notifications.NotifyFriendRequest(r.Context(), req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"pushed": pushed})
}
