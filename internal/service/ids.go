package service

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/odinbook/chat-server/internal/errors"
)

// parseID validates an identifier and returns its canonical lowercase form,
// which sorts the same way Postgres orders UUIDs.
func parseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.MissingRequired(field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.InvalidInput(field, "malformed id")
	}
	return id.String(), nil
}
