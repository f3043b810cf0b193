package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}
