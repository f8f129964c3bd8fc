package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"gorm.io/gorm"
)

// LedgerService maintains the per-department counters. They track
// "ever pending" against "resolved", not live state: only creation and
// resolution move them. Reconcile recomputes them from the complaints.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

func (s *LedgerService) OnCreated(ctx context.Context, department string) error {
	return s.increment(ctx, department, map[string]any{
		"total_complaints":   gorm.Expr("total_complaints + 1"),
		"pending_complaints": gorm.Expr("pending_complaints + 1"),
	})
}

func (s *LedgerService) OnResolved(ctx context.Context, department string) error {
	return s.increment(ctx, department, map[string]any{
		"resolved_complaints": gorm.Expr("resolved_complaints + 1"),
		"pending_complaints":  gorm.Expr("pending_complaints - 1"),
	})
}

func (s *LedgerService) increment(ctx context.Context, department string, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Department{}).
		Where("name = ?", department).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update ledger for %s: %w", department, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: department %s", ErrNotFound, department)
	}
	return nil
}

// List returns every department ordered by name.
func (s *LedgerService) List(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}

type departmentCount struct {
	Name  string
	Count int64
}

type resolutionSpan struct {
	AssignedDepartment string
	CreatedAt          time.Time
	ResolvedAt         time.Time
}

// Reconcile overwrites every department's counters with values computed
// from the complaints and their history, and returns the result.
func (s *LedgerService) Reconcile(ctx context.Context) ([]models.Department, error) {
	db := s.db.WithContext(ctx)

	var totals []departmentCount
	if err := db.Model(&models.Complaint{}).
		Select("assigned_department AS name, COUNT(*) AS count").
		Group("assigned_department").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to count complaints: %w", err)
	}

	var resolved []departmentCount
	if err := db.Table("complaint_status_history AS h").
		Select("c.assigned_department AS name, COUNT(DISTINCT h.complaint_id) AS count").
		Joins("JOIN complaints c ON c.id = h.complaint_id").
		Where("h.status = ?", models.StatusResolved).
		Group("c.assigned_department").
		Scan(&resolved).Error; err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}

	var spans []resolutionSpan
	if err := db.Model(&models.Complaint{}).
		Select("assigned_department, created_at, resolved_at").
		Where("resolved_at IS NOT NULL").
		Scan(&spans).Error; err != nil {
		return nil, fmt.Errorf("failed to load resolution times: %w", err)
	}

	totalBy := indexCounts(totals)
	resolvedBy := indexCounts(resolved)
	hours := make(map[string]float64)
	spanCount := make(map[string]int)
	for _, sp := range spans {
		hours[sp.AssignedDepartment] += sp.ResolvedAt.Sub(sp.CreatedAt).Hours()
		spanCount[sp.AssignedDepartment]++
	}

	departments, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range departments {
			d := &departments[i]
			d.TotalComplaints = totalBy[d.Name]
			d.ResolvedComplaints = resolvedBy[d.Name]
			d.PendingComplaints = d.TotalComplaints - d.ResolvedComplaints
			d.AvgResolutionTimeHours = 0
			if n := spanCount[d.Name]; n > 0 {
				d.AvgResolutionTimeHours = hours[d.Name] / float64(n)
			}

			if err := tx.Model(&models.Department{}).Where("id = ?", d.ID).Updates(map[string]any{
				"total_complaints":          d.TotalComplaints,
				"pending_complaints":        d.PendingComplaints,
				"resolved_complaints":       d.ResolvedComplaints,
				"avg_resolution_time_hours": d.AvgResolutionTimeHours,
			}).Error; err != nil {
				return fmt.Errorf("failed to update ledger for %s: %w", d.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return departments, nil
}

func indexCounts(rows []departmentCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Name] = r.Count
	}
	return m
}
