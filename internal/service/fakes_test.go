package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/odinbook/chat-server/internal/database"
	"github.com/odinbook/chat-server/internal/model"
	"github.com/odinbook/chat-server/internal/repository"
)

// fakeStore is an in-memory stand-in for the Postgres schema. Its locking
// gives the same guarantees the unique constraint and set-inserts give.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]model.User
	chats     map[string]*model.Chat
	chatMsgs  map[string][]string
	messages  map[string]*model.Message
	seq       int
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]model.User),
		chats:    make(map[string]*model.Chat),
		chatMsgs: make(map[string][]string),
		messages: make(map[string]*model.Message),
	}
}

func (s *fakeStore) addUser(firstName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[id] = model.User{ID: id, FirstName: firstName, LastName: "Test"}
	return id
}

func (s *fakeStore) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type fakeUserRepo struct{ *fakeStore }

func (r fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

type fakeChatRepo struct{ *fakeStore }

func (r fakeChatRepo) WithTx(tx *sqlx.Tx) repository.ChatRepository { return r }

func (r fakeChatRepo) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chats[id]; ok {
		chat := *c
		return &chat, nil
	}
	return nil, nil
}

func (r fakeChatRepo) FindByParticipants(ctx context.Context, pair model.Pair) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPairLocked(pair), nil
}

func (r fakeChatRepo) findPairLocked(pair model.Pair) *model.Chat {
	for _, c := range r.chats {
		if c.Pair() == pair {
			chat := *c
			return &chat
		}
	}
	return nil
}

func (r fakeChatRepo) FindByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r fakeChatRepo) Create(ctx context.Context, pair model.Pair) (*model.Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pair.A >= pair.B {
		return nil, false, errors.New("chats_canonical_pair violated")
	}
	if existing := r.findPairLocked(pair); existing != nil {
		return existing, false, nil
	}
	now := time.Now()
	chat := &model.Chat{ID: uuid.NewString(), ParticipantA: pair.A, ParticipantB: pair.B, CreatedAt: now, UpdatedAt: now}
	r.chats[chat.ID] = chat
	out := *chat
	return &out, true, nil
}

func (r fakeChatRepo) AppendMessage(ctx context.Context, chatID, messageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.chatMsgs[chatID] {
		if id == messageID {
			return false, nil
		}
	}
	r.chatMsgs[chatID] = append(r.chatMsgs[chatID], messageID)
	return true, nil
}

func (r fakeChatRepo) ListMessageIDs(ctx context.Context, chatID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chatMsgs[chatID]...), nil
}

type fakeMessageRepo struct{ *fakeStore }

func (r fakeMessageRepo) WithTx(tx *sqlx.Tx) repository.MessageRepository { return r }

func (r fakeMessageRepo) copyLocked(m *model.Message) model.Message {
	out := *m
	out.ReadBy = append([]string{}, m.ReadBy...)
	return out
}

func (r fakeMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[id]; ok {
		out := r.copyLocked(m)
		return &out, nil
	}
	return nil, nil
}

func (r fakeMessageRepo) FindByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, id := range r.chatMsgs[chatID] {
		out = append(out, r.copyLocked(r.messages[id]))
	}
	return out, nil
}

func (r fakeMessageRepo) Insert(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	r.seq++
	msg := &model.Message{
		ID:        uuid.NewString(),
		ChatRef:   params.ChatRef,
		AuthorID:  params.AuthorID,
		Text:      params.Text,
		ReadBy:    []string{},
		CreatedAt: time.Now().Add(time.Duration(r.seq) * time.Microsecond),
	}
	r.messages[msg.ID] = msg
	out := r.copyLocked(msg)
	return &out, nil
}

func (r fakeMessageRepo) MarkRead(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return errors.New("foreign key violation")
	}
	if !m.IsReadBy(userID) {
		m.ReadBy = append(m.ReadBy, userID)
	}
	return nil
}

func (r fakeMessageRepo) unreadLocked(userID string) []model.Message {
	var out []model.Message
	for _, m := range r.messages {
		chat := r.chats[m.ChatRef]
		if chat == nil || !chat.HasParticipant(userID) || m.AuthorID == userID || m.IsReadBy(userID) {
			continue
		}
		out = append(out, r.copyLocked(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r fakeMessageRepo) QueryUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.unreadLocked(userID)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeMessageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.unreadLocked(userID)), nil
}
