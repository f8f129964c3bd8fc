package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID          uuid.UUID  `json:"id"`
	ComplaintID *uuid.UUID `json:"complaint_id,omitempty"`
	Message     string     `json:"message"`
	Kind        string     `json:"kind"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
