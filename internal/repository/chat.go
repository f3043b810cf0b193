package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/odinbook/chat-server/internal/database"
	"github.com/odinbook/chat-server/internal/model"
)

type ChatRepository interface {
	FindByID(ctx context.Context, id string) (*model.Chat, error)
	FindByParticipants(ctx context.Context, pair model.Pair) (*model.Chat, error)
	FindByUser(ctx context.Context, userID string) ([]model.Chat, error)
	// Create inserts a chat for the pair. When another caller created it first,
	// the existing row is returned with created=false.
	Create(ctx context.Context, pair model.Pair) (chat *model.Chat, created bool, err error)
	// AppendMessage adds messageID to the chat's message list if absent.
	AppendMessage(ctx context.Context, chatID, messageID string) (bool, error)
	ListMessageIDs(ctx context.Context, chatID string) ([]string, error)
	WithTx(tx *sqlx.Tx) ChatRepository
}

type chatRepo struct {
	db database.DBTX
}

func NewChatRepository(db *sqlx.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) WithTx(tx *sqlx.Tx) ChatRepository {
	return &chatRepo{db: tx}
}

func (r *chatRepo) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT * FROM chats WHERE id = $1`, id)
	return HandleNotFound(&chat, err)
}

func (r *chatRepo) FindByParticipants(ctx context.Context, pair model.Pair) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.GetContext(ctx, &chat, `
		SELECT * FROM chats WHERE participant_a = $1 AND participant_b = $2
	`, pair.A, pair.B)
	return HandleNotFound(&chat, err)
}

func (r *chatRepo) FindByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.SelectContext(ctx, &chats, `
		SELECT * FROM chats
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC
	`, userID)
	return chats, err
}

func (r *chatRepo) Create(ctx context.Context, pair model.Pair) (*model.Chat, bool, error) {
	var chat model.Chat
	err := r.db.GetContext(ctx, &chat, `
		INSERT INTO chats (participant_a, participant_b)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT chats_participants_key DO NOTHING
		RETURNING *
	`, pair.A, pair.B)
	if err == nil {
		return &chat, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.FindByParticipants(ctx, pair)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, sql.ErrNoRows
	}
	return existing, false, nil
}

func (r *chatRepo) AppendMessage(ctx context.Context, chatID, messageID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		WITH appended AS (
			INSERT INTO chat_messages (chat_id, message_id)
			VALUES ($1, $2)
			ON CONFLICT (chat_id, message_id) DO NOTHING
			RETURNING chat_id
		)
		UPDATE chats SET updated_at = NOW()
		WHERE id IN (SELECT chat_id FROM appended)
	`, chatID, messageID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *chatRepo) ListMessageIDs(ctx context.Context, chatID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT message_id FROM chat_messages
		WHERE chat_id = $1
		ORDER BY position ASC
	`, chatID)
	return ids, err
}
