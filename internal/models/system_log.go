package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records so failed fan-outs and sweeps can be
// queried after the fact.
type SystemLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Level       string         `gorm:"size:10;not null;index" json:"level"`
	Message     string         `gorm:"type:text" json:"message"`
	ComplaintID string         `gorm:"size:36;index" json:"complaint_id"`
	DisplayID   string         `gorm:"size:32;index" json:"display_id"`
	Department  string         `gorm:"size:50" json:"department"`
	UserID      *string        `gorm:"size:36" json:"user_id"`
	Action      string         `gorm:"size:100" json:"action"`
	Error       string         `gorm:"type:text" json:"error"`
	Extra       datatypes.JSON `json:"extra"`
	CreatedAt   time.Time      `json:"created_at"`
}
