package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NotificationService is the entry point the friend-request flow uses to
// alert a user in realtime.
type NotificationService struct {
	notifier Notifier
}

func NewNotificationService(notifier Notifier) *NotificationService {
	return &NotificationService{notifier: notifier}
}

// NotifyFriendRequest pushes notification_alert if the user is online. It
// reports whether a push was queued; offline users see the request on their
// next fetch.
func (s *NotificationService) NotifyFriendRequest(ctx context.Context, userID string) (bool, error) {
	id, err := parseID("userId", userID)
	if err != nil {
		return false, err
	}
	pushed := s.notifier.NotifyFriendRequest(ctx, id)
	log.Debug().Str("userId", id).Bool("pushed", pushed).Msg("friend request notification")
	return pushed, nil
}
