package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Complaint statuses. Pending is the only initial state; resolved and
// escalated have no outgoing transitions.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusOnHold     = "on-hold"
	StatusResolved   = "resolved"
	StatusEscalated  = "escalated"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var Statuses = []string{StatusPending, StatusInProgress, StatusOnHold, StatusResolved, StatusEscalated}

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// Field limits.
const (
	MaxTitleLength    = 200
	MaxDescriptionLen = 2000
	MaxRemarksLength  = 1000
	MaxFeedbackLength = 500
)

// Complaint is a submitted ticket. It is never deleted; it changes only
// through status transitions and a single feedback submission.
type Complaint struct {
	ID                 uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayID          string                          `gorm:"size:32;not null;uniqueIndex" json:"display_id"`
	SubmitterID        uuid.UUID                       `gorm:"type:uuid;not null;index" json:"submitter_id"`
	Category           string                          `gorm:"size:50;not null;index" json:"category"`
	Title              string                          `gorm:"size:200;not null" json:"title"`
	Description        string                          `gorm:"type:text;not null" json:"description"`
	Priority           string                          `gorm:"size:10;not null;default:'medium'" json:"priority"`
	Status             string                          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	AssignedDepartment string                          `gorm:"size:50;not null;index" json:"assigned_department"`
	Anonymous          bool                            `gorm:"not null;default:false" json:"anonymous"`
	Attachments        datatypes.JSONSlice[Attachment] `json:"attachments"`
	ResolutionRemarks  string                          `gorm:"size:1000" json:"resolution_remarks,omitempty"`
	ResolvedAt         *time.Time                      `json:"resolved_at,omitempty"`
	EscalationDate     *time.Time                      `gorm:"index" json:"escalation_date,omitempty"`
	Feedback           Feedback                        `gorm:"embedded;embeddedPrefix:feedback_" json:"feedback"`
	Version            int                             `gorm:"not null;default:1" json:"-"`
	CreatedAt          time.Time                       `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time                       `json:"updated_at"`
	StatusHistory      []StatusChange                  `gorm:"foreignKey:ComplaintID" json:"status_history"`
}

// Attachment is metadata for a file stored by the upload collaborator.
type Attachment struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Feedback is set at most once, by the submitter, after resolution.
type Feedback struct {
	Rating      *int       `json:"rating,omitempty"`
	Comment     string     `gorm:"size:500" json:"comment,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

func (f Feedback) Submitted() bool { return f.SubmittedAt != nil }

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// StatusChange is one append-only audit entry. Seq orders entries per
// complaint and is unique with ComplaintID, so two writers can never
// append the same position.
type StatusChange struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_status_history_seq,priority:1" json:"complaint_id"`
	Seq         int        `gorm:"not null;uniqueIndex:idx_status_history_seq,priority:2" json:"seq"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	ChangedBy   *uuid.UUID `gorm:"type:uuid" json:"changed_by"`
	ChangedAt   time.Time  `gorm:"not null" json:"changed_at"`
	Remarks     string     `gorm:"size:1000" json:"remarks,omitempty"`
}

func (StatusChange) TableName() string {
	return "complaint_status_history"
}

func (s *StatusChange) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
