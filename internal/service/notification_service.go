package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

// Pusher delivers a payload to every live connection of a user
type Pusher interface {
	SendToUser(userID int64, payload []byte)
}

// Notice is a notification before it is addressed
type Notice struct {
	Title      string
	Message    string
	EntityType string
	EntityID   int64
}

type NotificationService interface {
	// Notify persists one notification per user and pushes it live.
	// It never returns an error; failures are logged.
	Notify(ctx context.Context, userIDs []int64, n Notice)
	NotifyRoles(ctx context.Context, n Notice, roles ...string)
	List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, actor Actor, id int64) error
	UnreadCount(ctx context.Context, actor Actor) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	pusher   Pusher
	logger   *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository, pusher Pusher, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, userRepo: userRepo, pusher: pusher, logger: logger}
}

type pushMessage struct {
	Type         string              `json:"type"`
	Notification *model.Notification `json:"notification"`
}

func (s *notificationService) Notify(ctx context.Context, userIDs []int64, n Notice) {
	seen := make(map[int64]bool, len(userIDs))
	items := make([]model.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, model.Notification{
			UserID:     id,
			Title:      n.Title,
			Message:    n.Message,
			EntityType: n.EntityType,
			EntityID:   n.EntityID,
		})
	}
	if len(items) == 0 {
		return
	}

	if err := s.repo.CreateBatch(context.WithoutCancel(ctx), items); err != nil {
		s.logger.Warn("Failed to store notifications", zap.String("title", n.Title), zap.Error(err))
		return
	}

	if s.pusher == nil {
		return
	}
	for i := range items {
		payload, err := json.Marshal(pushMessage{Type: "notification", Notification: &items[i]})
		if err != nil {
			continue
		}
		s.pusher.SendToUser(items[i].UserID, payload)
	}
}

func (s *notificationService) NotifyRoles(ctx context.Context, n Notice, roles ...string) {
	ids, err := s.userRepo.ListIDsByRole(ctx, roles...)
	if err != nil {
		s.logger.Warn("Failed to resolve notification recipients", zap.Strings("roles", roles), zap.Error(err))
		return
	}
	s.Notify(ctx, ids, n)
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list notifications")
	}
	return items, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id int64) error {
	ok, err := s.repo.MarkRead(ctx, id, actor.UserID)
	if err != nil {
		return apperror.Internal(err, "failed to update notification")
	}
	if !ok {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, apperror.Internal(err, "failed to count notifications")
	}
	return n, nil
}
