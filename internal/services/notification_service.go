package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NotificationListLimit caps how many notifications ListForUser returns.
const NotificationListLimit = 50

const escalationMessage = "Your complaint has been escalated due to delayed resolution"

// NotificationService writes the fan-out records and serves the recipient's
// read side. When a Redis client is set, every stored notification is also
// published on notifications:<recipient id>.
type NotificationService struct {
	db      *gorm.DB
	rdb     *redis.Client
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewNotificationService(db *gorm.DB, rdb *redis.Client, clk clock.Clock, m *metrics.Metrics) *NotificationService {
	return &NotificationService{db: db, rdb: rdb, clock: clk, metrics: m}
}

// NotifyCreated sends one new_complaint notification to each staff member
// of the complaint's category and returns how many were written.
func (s *NotificationService) NotifyCreated(ctx context.Context, complaint *models.Complaint) (int, error) {
	var staff []models.User
	if err := s.db.WithContext(ctx).
		Where("role = ? AND department = ?", models.RoleDepartment, complaint.Category).
		Find(&staff).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve department staff: %w", err)
	}
	if len(staff) == 0 {
		return 0, nil
	}

	now := s.clock.Now()
	notifications := make([]models.Notification, len(staff))
	for i, user := range staff {
		notifications[i] = models.Notification{
			RecipientID: user.ID,
			ComplaintID: &complaint.ID,
			Message:     "New complaint: " + complaint.Title,
			Kind:        models.NotificationNewComplaint,
			CreatedAt:   now,
		}
	}

	if err := s.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		return 0, fmt.Errorf("failed to store notifications: %w", err)
	}
	s.publish(ctx, notifications...)
	return len(notifications), nil
}

// NotifyTransition sends the submitter one notification for a status
// change. Escalations use their own kind and message.
func (s *NotificationService) NotifyTransition(ctx context.Context, complaint *models.Complaint, from, to string) error {
	n := models.Notification{
		RecipientID: complaint.SubmitterID,
		ComplaintID: &complaint.ID,
		Message:     fmt.Sprintf("Your complaint status updated: %s → %s", from, to),
		Kind:        models.NotificationStatusUpdate,
		CreatedAt:   s.clock.Now(),
	}
	if to == models.StatusEscalated {
		n.Message = escalationMessage
		n.Kind = models.NotificationEscalation
	}

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	s.publish(ctx, n)
	return nil
}

func (s *NotificationService) publish(ctx context.Context, notifications ...models.Notification) {
	if s.rdb == nil {
		return
	}
	for _, n := range notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			reportDependency(ctx, s.metrics, metrics.DependencyPublish, err, "notification_id", n.ID)
			continue
		}
		if err := s.rdb.Publish(ctx, "notifications:"+n.RecipientID.String(), payload).Err(); err != nil {
			reportDependency(ctx, s.metrics, metrics.DependencyPublish, err, "notification_id", n.ID)
		}
	}
}

type NotificationList struct {
	Notifications []models.Notification
	UnreadCount   int64
}

// ListForUser returns the newest notifications for userID and the number unread.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID) (*NotificationList, error) {
	db := s.db.WithContext(ctx)

	var list NotificationList
	if err := db.Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(NotificationListLimit).
		Find(&list.Notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if err := db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&list.UnreadCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &list, nil
}

// MarkRead flips one notification to read. Notifications addressed to
// someone else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if !n.Read {
		if err := s.db.WithContext(ctx).Model(&n).Update("read", true).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
		n.Read = true
	}
	return &n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	slog.InfoContext(ctx, "notifications marked read", "user_id", userID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}
