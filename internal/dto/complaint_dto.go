package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
)

type CreateComplaintRequest struct {
	Category    string              `json:"category"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    string              `json:"priority,omitempty"`
	Anonymous   bool                `json:"anonymous"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// ComplaintFilter holds the optional list predicates. Empty fields match everything.
type ComplaintFilter struct {
	Status   string `query:"status"`
	Category string `query:"category"`
	Priority string `query:"priority"`
	Search   string `query:"search"`
}

type TransitionRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// SubmitterResponse is the submitter identity as the caller may see it.
// Anonymous complaints read by anyone but the submitter or an admin carry
// masked values.
type SubmitterResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
}

type StatusChangeResponse struct {
	Seq       int        `json:"seq"`
	Status    string     `json:"status"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	ChangedAt time.Time  `json:"changed_at"`
	Remarks   string     `json:"remarks,omitempty"`
}

type ComplaintResponse struct {
	ID                 uuid.UUID              `json:"id"`
	DisplayID          string                 `json:"display_id"`
	Submitter          SubmitterResponse      `json:"submitter"`
	Category           string                 `json:"category"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Priority           string                 `json:"priority"`
	Status             string                 `json:"status"`
	AssignedDepartment string                 `json:"assigned_department"`
	Anonymous          bool                   `json:"anonymous"`
	Attachments        []models.Attachment    `json:"attachments"`
	ResolutionRemarks  string                 `json:"resolution_remarks,omitempty"`
	ResolvedAt         *time.Time             `json:"resolved_at,omitempty"`
	EscalationDate     *time.Time             `json:"escalation_date,omitempty"`
	Feedback           *models.Feedback       `json:"feedback,omitempty"`
	StatusHistory      []StatusChangeResponse `json:"status_history,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type ComplaintListResponse struct {
	Complaints []ComplaintResponse `json:"complaints"`
	Count      int                 `json:"count"`
}

type StatsResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPriority map[string]int64 `json:"by_priority"`
}

type DepartmentResponse struct {
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	Email                  string  `json:"email,omitempty"`
	TotalComplaints        int64   `json:"total_complaints"`
	PendingComplaints      int64   `json:"pending_complaints"`
	ResolvedComplaints     int64   `json:"resolved_complaints"`
	AvgResolutionTimeHours float64 `json:"avg_resolution_time_hours"`
}

type SweepResponse struct {
	Candidates int         `json:"candidates"`
	Escalated  int         `json:"escalated"`
	Skipped    int         `json:"skipped"`
	Failed     []uuid.UUID `json:"failed"`
	StartedAt  time.Time   `json:"started_at"`
	Duration   string      `json:"duration"`
}
