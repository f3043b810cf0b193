package service

import (
	"github.com/odinbook/chat-server/internal/metrics"
	"github.com/odinbook/chat-server/internal/realtime"
)

type testEnv struct {
	store         *fakeStore
	hub           *realtime.Hub
	chats         *ChatService
	messages      *MessageService
	notifications *NotificationService
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	m := metrics.New()
	hub := realtime.NewHub(m)
	dispatcher := realtime.NewDispatcher(hub, m)

	chatRepo := fakeChatRepo{store}
	messageRepo := fakeMessageRepo{store}
	chats := NewChatService(chatRepo, messageRepo, fakeUserRepo{store}, m)

	return &testEnv{
		store:         store,
		hub:           hub,
		chats:         chats,
		messages:      NewMessageService(store, chatRepo, messageRepo, chats, dispatcher, hub.Pending(), m),
		notifications: NewNotificationService(dispatcher),
	}
}
