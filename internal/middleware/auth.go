package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/audit"
	"github.com/odinbook/chat-server/internal/auth"
	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/httputil"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// Identity is the authenticated caller, established once per request or
// realtime connection.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

func GetIdentity(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(*Identity); ok {
		return identity
	}
	return nil
}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier   TokenVerifier
	cookieName string
}

func NewAuthMiddleware(verifier TokenVerifier, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, cookieName: cookieName}
}

// Authenticate verifies the request's session token and returns the caller.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*Identity, error) {
	token := m.extractToken(r)
	if token == "" {
		return nil, apperrors.Unauthorized("Missing authentication token")
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken("Invalid token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.InvalidToken("Invalid token subject")
	}

	identity := &Identity{UserID: userID.String()}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.Authenticate(r)
		if err != nil {
			log.Warn().Str("path", r.URL.Path).Msg("auth middleware: rejected request")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": string(apperrors.GetCode(err))},
			})
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// extractToken checks the session cookie, then the Authorization header,
// then the token query parameter used by browser WebSocket clients.
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if m.cookieName != "" {
		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}
