package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spark-repository/spark-api/internal/entity"
	notifRepo "github.com/spark-repository/spark-api/internal/modules/notification/repository"
)

// Notifier is the write-side surface other modules use to alert a user. The
// full NotificationService embeds it so callers depend on the narrow interface.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, notifType string, studyID *uuid.UUID, message string)
}

type NotificationService interface {
	Notifier
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

// Notify persists the notification and pushes it to the user's Redis channel.
// It is best-effort: callers never fail their primary write over a lost
// notification, so errors are logged here rather than returned.
func (s *notificationService) Notify(ctx context.Context, userID uuid.UUID, notifType string, studyID *uuid.UUID, message string) {
	notification := &entity.Notification{
		UserID:  userID,
		Type:    notifType,
		StudyID: studyID,
		Message: message,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		log.Printf("failed to store notification for user %s: %v", userID, err)
		return
	}

	if s.redisClient != nil {
		channel := fmt.Sprintf("user_notifications:%s", userID.String())
		if payload, err := json.Marshal(notification); err == nil {
			s.redisClient.Publish(ctx, channel, payload)
		}
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.FindByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
