package model

import (
	"time"

	"github.com/lib/pq"
)

type Message struct {
	ID        string         `db:"id" json:"id"`
	ChatRef   string         `db:"chat_ref" json:"chatRef"`
	AuthorID  string         `db:"author" json:"authorId"`
	Text      string         `db:"text" json:"text"`
	ReadBy    pq.StringArray `db:"read_by" json:"readBy"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Summary is the lightweight form pushed with alerts and kept in the pending buffer.
func (m *Message) Summary() MessageSummary {
	return MessageSummary{
		ID:        m.ID,
		ChatRef:   m.ChatRef,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

type CreateMessageParams struct {
	ChatRef  string
	AuthorID string
	Text     string
}

// MessageView is a message with its author resolved.
type MessageView struct {
	Message
	Author *User `json:"author,omitempty"`
}

type MessageSummary struct {
	ID        string    `json:"id"`
	ChatRef   string    `json:"chatRef"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
