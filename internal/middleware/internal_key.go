package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/audit"
	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/httputil"
)

const InternalKeyHeader = "X-Internal-Key"

// InternalKeyMiddleware admits only server-side collaborators that present
// the shared internal key. An empty key refuses every request.
type InternalKeyMiddleware struct {
	key string
}

func NewInternalKeyMiddleware(key string) *InternalKeyMiddleware {
	return &InternalKeyMiddleware{key: key}
}

func (m *InternalKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(InternalKeyHeader)
		if m.key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(m.key)) != 1 {
			log.Warn().Str("path", r.URL.Path).Msg("internal route: rejected caller")
			event := audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "internal_key"},
			}
			if identity := GetIdentity(r.Context()); identity != nil {
				event.UserID = identity.UserID
			}
			audit.LogFromRequest(r, event)
			httputil.WriteError(w, apperrors.Forbidden("Internal route"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
