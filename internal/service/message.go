package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/odinbook/chat-server/internal/config"
	"github.com/odinbook/chat-server/internal/database"
	apperrors "github.com/odinbook/chat-server/internal/errors"
	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/model"
	"github.com/odinbook/chat-server/internal/realtime"
	"github.com/odinbook/chat-server/internal/repository"
)

var validate = validator.New()

// messageText bounds are counted in runes.
type messageText struct {
	Text string `validate:"min=1,max=64"`
}

// Transactor runs fn inside a storage transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// Notifier is the delivery side of the pipeline.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, msg *model.Message, view *model.ChatView) realtime.Delivery
	NotifyFriendRequest(ctx context.Context, userID string) bool
}

// Backlog is the pending-notification cache kept beside persisted readBy state.
type Backlog interface {
	Drain(recipientID string) []model.MessageSummary
	Dismiss(recipientID, messageID string) bool
	Invalidate(recipientID string, messageIDs ...string) int
}

type MessageService struct {
	tx          Transactor
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	chats       *ChatService
	notifier    Notifier
	backlog     Backlog
	metrics     *metrics.Metrics
}

func NewMessageService(
	tx Transactor,
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	chats *ChatService,
	notifier Notifier,
	backlog Backlog,
	m *metrics.Metrics,
) *MessageService {
	return &MessageService{
		tx:          tx,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		chats:       chats,
		notifier:    notifier,
		backlog:     backlog,
		metrics:     m,
	}
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(messageText{Text: text}); err != nil {
		if text == "" {
			return "", apperrors.MissingRequired("text")
		}
		return "", apperrors.InvalidInput("text",
			"must be between 1 and 64 characters").WithDetails(map[string]int{
			"min": config.MessageMinLength,
			"max": config.MessageMaxLength,
		})
	}
	return text, nil
}

// Send persists a message into chatRef and notifies the other participant.
// The insert and the append to the chat's message list commit together.
func (s *MessageService) Send(ctx context.Context, authorID, chatRef, text string) (*model.Message, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.findChat(ctx, chatRef)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(authorID) {
		log.Warn().
			Str("userId", authorID).
			Str("chatId", chat.ID).
			Msg("send rejected for non-participant")
		return nil, apperrors.NotParticipant()
	}

	var msg *model.Message
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		msg, err = s.messageRepo.WithTx(tx).Insert(ctx, model.CreateMessageParams{
			ChatRef:  chat.ID,
			AuthorID: authorID,
			Text:     text,
		})
		if err != nil {
			return err
		}
		_, err = s.chatRepo.WithTx(tx).AppendMessage(ctx, chat.ID, msg.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	s.metrics.ObserveMessageSent()

	log.Info().
		Str("messageId", msg.ID).
		Str("chatId", chat.ID).
		Str("userId", authorID).
		Msg("message sent")

	view, err := s.chats.buildView(ctx, chat)
	if err != nil {
		log.Error().Err(err).Str("chatId", chat.ID).Msg("failed to load chat for delivery")
		return msg, nil
	}
	s.notifier.Notify(ctx, chat.Pair().Other(authorID), msg, view)
	return msg, nil
}

// MarkRead adds userID to the message's readBy set and drops it from the
// user's pending backlog.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID string) (*model.Message, error) {
	id, err := parseID("messageId", messageID)
	if err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if msg == nil {
		return nil, apperrors.NotFound("Message")
	}
	chat, err := s.chatRepo.FindByID(ctx, msg.ChatRef)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if chat == nil || !chat.HasParticipant(userID) {
		return nil, apperrors.NotParticipant()
	}

	if !msg.IsReadBy(userID) {
		if err := s.messageRepo.MarkRead(ctx, id, userID); err != nil {
			return nil, apperrors.Database(err)
		}
		msg.ReadBy = append(msg.ReadBy, userID)
	}
	s.backlog.Invalidate(userID, id)

	log.Debug().Str("messageId", id).Str("userId", userID).Msg("message marked as read")
	return msg, nil
}

// ListUnread returns messages addressed to userID that are not in their
// readBy set, oldest first.
func (s *MessageService) ListUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error) {
	if limit <= 0 || limit > config.UnreadQueryLimit {
		limit = config.UnreadQueryLimit
	}
	msgs, err := s.messageRepo.QueryUnread(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (s *MessageService) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	return n, nil
}

// PendingFor returns the in-memory backlog without clearing it.
func (s *MessageService) PendingFor(userID string) []model.MessageSummary {
	pending := s.backlog.Drain(userID)
	if pending == nil {
		pending = []model.MessageSummary{}
	}
	return pending
}

// Dismiss removes one message from the user's pending backlog. Persisted
// readBy state is not touched.
func (s *MessageService) Dismiss(userID, messageID string) error {
	id, err := parseID("messageId", messageID)
	if err != nil {
		return err
	}
	s.backlog.Dismiss(userID, id)
	return nil
}
