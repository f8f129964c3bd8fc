package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/access"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"gorm.io/gorm"
)

const (
	// RecentLimit is how many of the newest complaints analytics include.
	RecentLimit = 10
	// TrendDays is the span of the daily complaint counts.
	TrendDays = 30
)

type Overview struct {
	TotalComplaints    int64
	TotalStudents      int64
	TotalDepartments   int64
	AvgResolutionHours float64
}

type CategoryStats struct {
	Category   string
	Count      int64
	Resolved   int64
	Pending    int64
	InProgress int64
}

type DailyCount struct {
	Day   string
	Count int64
}

// Dashboard is the institution-wide picture shown to admins.
type Dashboard struct {
	Overview   Overview
	ByStatus   map[string]int64
	ByPriority map[string]int64
	Categories []CategoryStats
	Recent     []ComplaintView
	Daily      []DailyCount
}

type DepartmentAnalytics struct {
	Department string
	Total      int64
	ByStatus   map[string]int64
	Recent     []ComplaintView
}

// AnalyticsService aggregates complaints for dashboards. Admins see all
// departments; department staff see only their own.
type AnalyticsService struct {
	db         *gorm.DB
	complaints *ComplaintService
	registry   *department.Registry
	loc        *time.Location
	clock      clock.Clock
}

func NewAnalyticsService(db *gorm.DB, complaints *ComplaintService, registry *department.Registry, loc *time.Location, clk clock.Clock) *AnalyticsService {
	return &AnalyticsService{db: db, complaints: complaints, registry: registry, loc: loc, clock: clk}
}

func (s *AnalyticsService) Dashboard(ctx context.Context, caller identity.Caller) (*Dashboard, error) {
	if caller.Role != identity.RoleAdmin {
		return nil, fmt.Errorf("%w: dashboard is restricted to admins", ErrForbidden)
	}
	db := s.db.WithContext(ctx)

	d := &Dashboard{}
	var err error
	if d.ByStatus, err = s.countBy(db, "status", models.Statuses); err != nil {
		return nil, err
	}
	if d.ByPriority, err = s.countBy(db, "priority", models.Priorities); err != nil {
		return nil, err
	}
	for _, n := range d.ByStatus {
		d.Overview.TotalComplaints += n
	}

	if err := db.Model(&models.Complaint{}).
		Select("category, COUNT(*) AS count, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS resolved, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS in_progress",
			models.StatusResolved, models.StatusPending, models.StatusInProgress).
		Group("category").
		Order("count DESC").Order("category ASC").
		Scan(&d.Categories).Error; err != nil {
		return nil, fmt.Errorf("failed to count complaints by category: %w", err)
	}

	if err := db.Model(&models.User{}).Where("role = ?", models.RoleStudent).
		Count(&d.Overview.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	if err := db.Model(&models.Department{}).Count(&d.Overview.TotalDepartments).Error; err != nil {
		return nil, fmt.Errorf("failed to count departments: %w", err)
	}

	if d.Overview.AvgResolutionHours, err = s.avgResolutionHours(db); err != nil {
		return nil, err
	}
	if d.Daily, err = s.daily(db); err != nil {
		return nil, err
	}
	if d.Recent, err = s.recent(ctx, caller, db.Model(&models.Complaint{})); err != nil {
		return nil, err
	}
	return d, nil
}

// Department reports one department. Staff of other departments and
// students get ErrForbidden; unknown names get ErrNotFound.
func (s *AnalyticsService) Department(ctx context.Context, caller identity.Caller, name string) (*DepartmentAnalytics, error) {
	switch caller.Role {
	case identity.RoleAdmin:
	case identity.RoleDepartment:
		if caller.Department != name {
			return nil, fmt.Errorf("%w: not authorized to access department %s", ErrForbidden, name)
		}
	default:
		return nil, fmt.Errorf("%w: department analytics are restricted to staff", ErrForbidden)
	}
	if !s.registry.Exists(name) {
		return nil, fmt.Errorf("%w: department %s", ErrNotFound, name)
	}

	db := s.db.WithContext(ctx)
	inDepartment := func() *gorm.DB {
		return db.Model(&models.Complaint{}).Where("assigned_department = ?", name)
	}

	out := &DepartmentAnalytics{Department: name}
	var err error
	if out.ByStatus, err = s.countBy(inDepartment(), "status", models.Statuses); err != nil {
		return nil, err
	}
	for _, n := range out.ByStatus {
		out.Total += n
	}
	if out.Recent, err = s.recent(ctx, caller, inDepartment()); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalyticsService) countBy(query *gorm.DB, column string, keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	for _, k := range keys {
		counts[k] = 0
	}

	var rows []groupCount
	if err := query.Model(&models.Complaint{}).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count complaints by %s: %w", column, err)
	}
	for _, r := range rows {
		counts[r.GroupKey] = r.Count
	}
	return counts, nil
}

// avgResolutionHours averages resolvedAt - createdAt over complaints that
// are currently resolved, rounded to one decimal.
func (s *AnalyticsService) avgResolutionHours(db *gorm.DB) (float64, error) {
	var spans []resolutionSpan
	if err := db.Model(&models.Complaint{}).
		Select("assigned_department, created_at, resolved_at").
		Where("status = ? AND resolved_at IS NOT NULL", models.StatusResolved).
		Scan(&spans).Error; err != nil {
		return 0, fmt.Errorf("failed to load resolution times: %w", err)
	}
	if len(spans) == 0 {
		return 0, nil
	}

	var hours float64
	for _, sp := range spans {
		hours += sp.ResolvedAt.Sub(sp.CreatedAt).Hours()
	}
	return math.Round(hours/float64(len(spans))*10) / 10, nil
}

// daily counts complaints per local calendar day over the last TrendDays
// days. Days without complaints are omitted.
func (s *AnalyticsService) daily(db *gorm.DB) ([]DailyCount, error) {
	since := s.clock.Now().AddDate(0, 0, -TrendDays)

	var created []time.Time
	if err := db.Model(&models.Complaint{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &created).Error; err != nil {
		return nil, fmt.Errorf("failed to load complaint dates: %w", err)
	}

	byDay := make(map[string]int64)
	for _, t := range created {
		byDay[t.In(s.loc).Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DailyCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *AnalyticsService) recent(ctx context.Context, caller identity.Caller, query *gorm.DB) ([]ComplaintView, error) {
	var complaints []models.Complaint
	if err := query.Order("created_at DESC").Order("display_id DESC").
		Limit(RecentLimit).
		Find(&complaints).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent complaints: %w", err)
	}
	return s.complaints.views(ctx, access.For(caller), complaints)
}
