package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/model"
	"github.com/odinbook/chat-server/internal/repository"
)

type ChatService struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	metrics     *metrics.Metrics
}

func NewChatService(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	m *metrics.Metrics,
) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		metrics:     m,
	}
}

// ResolveOrCreate returns the single chat for the unordered pair, creating
// it on first use. Concurrent first calls converge on the same row through
// the participants unique constraint.
func (s *ChatService) ResolveOrCreate(ctx context.Context, userA, userB string) (*model.Chat, error) {
	a, err := parseID("userId", userA)
	if err != nil {
		return nil, err
	}
	b, err := parseID("friendId", userB)
	if err != nil {
		return nil, err
	}
	if a == b {
		return nil, apperrors.ValidationError("Cannot open a chat with yourself")
	}
	pair := model.NewPair(a, b)

	chat, err := s.chatRepo.FindByParticipants(ctx, pair)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if chat != nil {
		return chat, nil
	}

	for _, id := range []string{pair.A, pair.B} {
		exists, err := s.userRepo.Exists(ctx, id)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if !exists {
			return nil, apperrors.NotFound("User")
		}
	}

	chat, created, err := s.chatRepo.Create(ctx, pair)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if created {
		s.metrics.ObserveChatCreated()
		log.Info().
			Str("chatId", chat.ID).
			Str("participantA", pair.A).
			Str("participantB", pair.B).
			Msg("chat created")
	}
	return chat, nil
}

// Open resolves the chat with friendID and returns it with messages loaded.
func (s *ChatService) Open(ctx context.Context, userID, friendID string) (*model.ChatView, error) {
	chat, err := s.ResolveOrCreate(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, chat)
}

// GetView loads a chat the viewer participates in.
func (s *ChatService) GetView(ctx context.Context, chatID, viewerID string) (*model.ChatView, error) {
	chat, err := s.findChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(viewerID) {
		return nil, apperrors.NotParticipant()
	}
	return s.buildView(ctx, chat)
}

func (s *ChatService) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	chats, err := s.chatRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	return chats, nil
}

func (s *ChatService) findChat(ctx context.Context, chatID string) (*model.Chat, error) {
	id, err := parseID("chatRef", chatID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chatRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if chat == nil {
		return nil, apperrors.NotFound("Chat")
	}
	return chat, nil
}

func (s *ChatService) buildView(ctx context.Context, chat *model.Chat) (*model.ChatView, error) {
	messages, err := s.messageRepo.FindByChat(ctx, chat.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	authorIDs := lo.Uniq(lo.Map(messages, func(m model.Message, _ int) string { return m.AuthorID }))
	users, err := s.userRepo.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	authors := lo.SliceToMap(users, func(u model.User) (string, model.User) { return u.ID, u })

	views := lo.Map(messages, func(m model.Message, _ int) model.MessageView {
		view := model.MessageView{Message: m}
		if author, ok := authors[m.AuthorID]; ok {
			view.Author = &author
		}
		return view
	})
	return model.NewChatView(chat, views), nil
}
