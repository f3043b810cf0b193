package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/odinbook/chat-server/internal/database"
	"github.com/odinbook/chat-server/internal/model"
)

const messageColumns = `
	m.id, m.chat_ref, m.author, m.text, m.created_at,
	ARRAY(
		SELECT r.user_id::text FROM message_reads r
		WHERE r.message_id = m.id
		ORDER BY r.read_at, r.user_id
	) AS read_by`

type MessageRepository interface {
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// FindByChat returns the chat's message list in chronological order.
	FindByChat(ctx context.Context, chatID string) ([]model.Message, error)
	Insert(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	// MarkRead adds userID to the message's readBy set if absent.
	MarkRead(ctx context.Context, messageID, userID string) error
	// QueryUnread returns messages in the user's chats that someone else
	// authored and the user has not read, oldest first.
	QueryUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db database.DBTX
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages m WHERE m.id = $1`, id)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) FindByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT `+messageColumns+`
		FROM chat_messages cm
		JOIN messages m ON m.id = cm.message_id
		WHERE cm.chat_id = $1
		ORDER BY cm.position ASC
	`, chatID)
	return msgs, err
}

func (r *messageRepo) Insert(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		WITH inserted AS (
			INSERT INTO messages (chat_ref, author, text)
			VALUES ($1, $2, $3)
			RETURNING *
		)
		SELECT m.id, m.chat_ref, m.author, m.text, m.created_at, '{}'::text[] AS read_by
		FROM inserted m
	`, params.ChatRef, params.AuthorID, params.Text)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, messageID, userID)
	return err
}

func (r *messageRepo) QueryUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN chats c ON c.id = m.chat_ref
		WHERE (c.participant_a = $1 OR c.participant_b = $1)
		AND m.author <> $1
		AND NOT EXISTS (
			SELECT 1 FROM message_reads r
			WHERE r.message_id = m.id AND r.user_id = $1
		)
		ORDER BY m.created_at ASC, m.id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return msgs, err
}

func (r *messageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM messages m
		JOIN chats c ON c.id = m.chat_ref
		WHERE (c.participant_a = $1 OR c.participant_b = $1)
		AND m.author <> $1
		AND NOT EXISTS (
			SELECT 1 FROM message_reads r
			WHERE r.message_id = m.id AND r.user_id = $1
		)
	`, userID)
	return count, err
}
