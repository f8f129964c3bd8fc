package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/access"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// escalatable are the statuses the sweep may move to escalated.
var escalatable = []string{models.StatusPending, models.StatusInProgress}

// TransitionService applies status changes. Every change bumps the
// complaint's version with a compare-and-set and appends one history
// entry in the same transaction; concurrent writers on one complaint lose
// with ErrConflict instead of overwriting each other.
type TransitionService struct {
	db       *gorm.DB
	ledger   *LedgerService
	notifier *NotificationService
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewTransitionService(db *gorm.DB, ledger *LedgerService, notifier *NotificationService, clk clock.Clock, m *metrics.Metrics) *TransitionService {
	return &TransitionService{db: db, ledger: ledger, notifier: notifier, clock: clk, metrics: m}
}

type transition struct {
	target  string
	actor   *uuid.UUID
	remarks string
	system  bool
}

// Apply moves a complaint to req.Status on behalf of caller.
func (s *TransitionService) Apply(ctx context.Context, caller identity.Caller, id uuid.UUID, req *dto.TransitionRequest) (*models.Complaint, error) {
	target := strings.TrimSpace(req.Status)
	remarks := strings.TrimSpace(req.Remarks)

	switch {
	case !oneOf(target, models.Statuses):
		return nil, validationf("unknown status %q", target)
	case target == models.StatusEscalated:
		return nil, fmt.Errorf("%w: complaints are escalated only by the escalation sweep", ErrForbidden)
	case target == models.StatusPending:
		return nil, validationf("a complaint cannot return to pending")
	case remarks == "" && (target == models.StatusResolved || target == models.StatusOnHold):
		return nil, validationf("remarks are required when moving to %s", target)
	case utf8.RuneCountInString(remarks) > models.MaxRemarksLength:
		return nil, validationf("remarks exceed %d characters", models.MaxRemarksLength)
	}

	complaint, err := loadComplaint(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	policy := access.For(caller)
	if !policy.CanRead(complaint) || !policy.CanTransition(complaint) {
		return nil, fmt.Errorf("%w: not authorized to update complaint %s", ErrForbidden, id)
	}
	if isTerminal(complaint.Status) {
		return nil, validationf("no transition is defined out of %s", complaint.Status)
	}

	actor := caller.ID
	return s.apply(ctx, complaint, transition{target: target, actor: &actor, remarks: remarks})
}

// Escalate moves an overdue complaint to escalated as the system actor.
// A complaint that has left pending/in-progress or was already escalated
// is reported as ErrConflict and left untouched.
func (s *TransitionService) Escalate(ctx context.Context, id uuid.UUID, remarks string) (*models.Complaint, error) {
	complaint, err := loadComplaint(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if complaint.EscalationDate != nil || !oneOf(complaint.Status, escalatable) {
		return nil, fmt.Errorf("%w: complaint %s is no longer eligible for escalation", ErrConflict, id)
	}
	return s.apply(ctx, complaint, transition{target: models.StatusEscalated, remarks: remarks, system: true})
}

// Overdue lists the complaints the sweep should escalate: pending or
// in-progress, created at or before cutoff, never escalated.
func (s *TransitionService) Overdue(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("status IN ? AND created_at <= ? AND escalation_date IS NULL", escalatable, cutoff).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select overdue complaints: %w", err)
	}
	return ids, nil
}

func (s *TransitionService) apply(ctx context.Context, complaint *models.Complaint, t transition) (*models.Complaint, error) {
	from := complaint.Status
	now := s.clock.Now()

	updates := map[string]any{
		"status":     t.target,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now,
	}
	if t.target == models.StatusResolved {
		updates["resolved_at"] = now
		updates["resolution_remarks"] = t.remarks
	}
	if t.system && t.target == models.StatusEscalated {
		updates["escalation_date"] = now
	}

	var entry models.StatusChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Complaint{}).Where("id = ? AND version = ?", complaint.ID, complaint.Version)
		if t.system {
			q = q.Where("escalation_date IS NULL AND status IN ?", escalatable)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update complaint: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: complaint %s changed concurrently, reload and retry", ErrConflict, complaint.ID)
		}

		var last int
		if err := tx.Model(&models.StatusChange{}).
			Where("complaint_id = ?", complaint.ID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to read status history: %w", err)
		}

		entry = models.StatusChange{
			ComplaintID: complaint.ID,
			Seq:         last + 1,
			Status:      t.target,
			ChangedBy:   t.actor,
			ChangedAt:   now,
			Remarks:     t.remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: status history of %s changed concurrently", ErrConflict, complaint.ID)
			}
			return fmt.Errorf("failed to append status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transitions.WithLabelValues(from, t.target).Inc()
	logAttrs := []any{
		"complaint_id", complaint.ID,
		"display_id", complaint.DisplayID,
		"department", complaint.AssignedDepartment,
		"action", from + "->" + t.target,
	}
	if t.actor != nil {
		logAttrs = append(logAttrs, "user_id", *t.actor)
	}
	slog.InfoContext(ctx, "status transition applied", logAttrs...)

	if t.target == models.StatusResolved {
		if err := s.ledger.OnResolved(ctx, complaint.AssignedDepartment); err != nil {
			reportDependency(ctx, s.metrics, metrics.DependencyLedger, err,
				"complaint_id", complaint.ID, "department", complaint.AssignedDepartment)
		}
	}
	if err := s.notifier.NotifyTransition(ctx, complaint, from, t.target); err != nil {
		reportDependency(ctx, s.metrics, metrics.DependencyNotification, err,
			"complaint_id", complaint.ID, "display_id", complaint.DisplayID)
	}

	updated, err := loadComplaint(ctx, s.db, complaint.ID)
	if err != nil {
		slog.WarnContext(ctx, "reload after transition failed, returning applied state",
			"complaint_id", complaint.ID, "error", err)
		return applied(complaint, t, entry, now), nil
	}
	return updated, nil
}

// applied is complaint as the committed transition left it, built without
// reading the store back.
func applied(complaint *models.Complaint, t transition, entry models.StatusChange, now time.Time) *models.Complaint {
	out := *complaint
	out.Status = t.target
	out.Version++
	out.UpdatedAt = now
	if t.target == models.StatusResolved {
		out.ResolvedAt = &now
		out.ResolutionRemarks = t.remarks
	}
	if t.system && t.target == models.StatusEscalated {
		out.EscalationDate = &now
	}
	out.StatusHistory = make([]models.StatusChange, 0, len(complaint.StatusHistory)+1)
	out.StatusHistory = append(out.StatusHistory, complaint.StatusHistory...)
	out.StatusHistory = append(out.StatusHistory, entry)
	return &out
}

func isTerminal(status string) bool {
	return status == models.StatusResolved || status == models.StatusEscalated
}
