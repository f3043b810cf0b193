package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/odinbook/chat-server/internal/model"
)

type MockChatUseCases struct {
	mock.Mock
}

func (m *MockChatUseCases) ResolveOrCreate(ctx context.Context, userA, userB string) (*model.Chat, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Chat), args.Error(1)
}

func (m *MockChatUseCases) Open(ctx context.Context, userID, friendID string) (*model.ChatView, error) {
	args := m.Called(ctx, userID, friendID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatView), args.Error(1)
}

func (m *MockChatUseCases) GetView(ctx context.Context, chatID, viewerID string) (*model.ChatView, error) {
	args := m.Called(ctx, chatID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatView), args.Error(1)
}

func (m *MockChatUseCases) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Chat), args.Error(1)
}

type MockMessageUseCases struct {
	mock.Mock
}

func (m *MockMessageUseCases) Send(ctx context.Context, authorID, chatRef, text string) (*model.Message, error) {
	args := m.Called(ctx, authorID, chatRef, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageUseCases) MarkRead(ctx context.Context, userID, messageID string) (*model.Message, error) {
	args := m.Called(ctx, userID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageUseCases) ListUnread(ctx context.Context, userID string, limit, offset int) ([]model.Message, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MockMessageUseCases) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageUseCases) PendingFor(userID string) []model.MessageSummary {
	args := m.Called(userID)
	return args.Get(0).([]model.MessageSummary)
}

func (m *MockMessageUseCases) Dismiss(userID, messageID string) error {
	args := m.Called(userID, messageID)
	return args.Error(0)
}

type MockFriendRequestNotifier struct {
	mock.Mock
}

func (m *MockFriendRequestNotifier) NotifyFriendRequest(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}
