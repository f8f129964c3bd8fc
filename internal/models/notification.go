package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationNewComplaint    = "new_complaint"
	NotificationStatusUpdate    = "status_update"
	NotificationEscalation      = "escalation"
	NotificationFeedbackRequest = "feedback_request"
	NotificationAssignment      = "assignment"
)

// Notification is produced by the engine. Only Read ever changes.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_inbox,priority:1" json:"recipient_id"`
	ComplaintID *uuid.UUID `gorm:"type:uuid;index" json:"complaint_id,omitempty"`
	Message     string     `gorm:"size:500;not null" json:"message"`
	Kind        string     `gorm:"size:30;not null;default:'status_update'" json:"kind"`
	Read        bool       `gorm:"not null;default:false;index:idx_notifications_inbox,priority:2" json:"read"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_notifications_inbox,priority:3" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
