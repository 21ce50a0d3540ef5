package service

import (
	"context"
	"fmt"

	"socialite/internal/model"
	"socialite/internal/repository"
)

// NotificationService is a thin read layer; notifications are created by the
// worker when it consumes follow events.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	notifications, unreadCount, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
	}, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
