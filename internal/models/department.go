package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department carries the ledger counters. The counters are a best-effort
// denormalization maintained by increments at creation and resolution;
// the complaints table is the source of truth.
type Department struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description            string    `gorm:"size:500" json:"description"`
	Email                  string    `gorm:"size:255" json:"email"`
	TotalComplaints        int64     `gorm:"not null;default:0" json:"total_complaints"`
	PendingComplaints      int64     `gorm:"not null;default:0" json:"pending_complaints"`
	ResolvedComplaints     int64     `gorm:"not null;default:0" json:"resolved_complaints"`
	AvgResolutionTimeHours float64   `gorm:"not null;default:0" json:"avg_resolution_time_hours"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
