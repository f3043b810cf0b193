package handler

import (
	"context"

	"github.com/odinbook/chat-server/internal/model"
)

type ChatUseCases interface {
	ResolveOrCreate(ctx context.Context, userA, userB string) (*model.Chat, error)
	Open(ctx context.Context, userID, friendID string) (*model.ChatView, error)
	GetView(ctx context.Context, chatID, viewerID string) (*model.ChatView, error)
	ListForUser(ctx context.Context, userID string) ([]model.Chat, error)
}

type MessageUseCases interface {
	Send(ctx context.Context, authorID, chatRef, text string) (*model.Message, error)
	MarkRead(ctx context.Context, userID, messageID string) (*model.Message, error)
	ListUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	PendingFor(userID string) []model.MessageSummary
	Dismiss(userID, messageID string) error
}

type FriendRequestNotifier interface {
	NotifyFriendRequest(ctx context.Context, userID string) (bool, error)
}
