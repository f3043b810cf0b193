package model

import (
	"time"
)

// Pair is an unordered pair of user ids stored in canonical (sorted) order.
type Pair struct {
	A string
	B string
}

// NewPair orders the two ids so (a, b) and (b, a) yield the same pair.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Other returns the participant that is not userID.
func (p Pair) Other(userID string) string {
	if p.A == userID {
		return p.B
	}
	return p.A
}

func (p Pair) Has(userID string) bool {
	return p.A == userID || p.B == userID
}

type Chat struct {
	ID           string    `db:"id" json:"id"`
	ParticipantA string    `db:"participant_a" json:"-"`
	ParticipantB string    `db:"participant_b" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

func (c *Chat) Pair() Pair {
	return Pair{A: c.ParticipantA, B: c.ParticipantB}
}

func (c *Chat) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

func (c *Chat) HasParticipant(userID string) bool {
	return c.Pair().Has(userID)
}

// ChatView is a chat with its message list populated in chronological order.
type ChatView struct {
	ID           string        `json:"id"`
	Participants []string      `json:"participants"`
	Messages     []MessageView `json:"messages"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// MessageIDs returns the chat's message list.
func (v *ChatView) MessageIDs() []string {
	ids := make([]string, len(v.Messages))
	for i, m := range v.Messages {
		ids[i] = m.ID
	}
	return ids
}

func NewChatView(chat *Chat, messages []MessageView) *ChatView {
	if messages == nil {
		messages = []MessageView{}
	}
	return &ChatView{
		ID:           chat.ID,
		Participants: chat.Participants(),
		Messages:     messages,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
}
