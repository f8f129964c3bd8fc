package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/access"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/sequence"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxAttachments is the most attachment records one complaint may carry.
const MaxAttachments = 5

const maxDisplayIDAttempts = 5

// Submitter is the submitter identity as a particular caller may see it.
type Submitter struct {
	ID        string
	Name      string
	Email     string
	StudentID string
}

var maskedSubmitter = Submitter{
	ID:        access.MaskedValue,
	Name:      access.AnonymousName,
	Email:     access.MaskedValue,
	StudentID: access.MaskedValue,
}

// ComplaintView is a complaint read through a caller's policy.
type ComplaintView struct {
	Complaint *models.Complaint
	Submitter Submitter
	Redacted  bool
}

type Stats struct {
	Total      int64
	ByStatus   map[string]int64
	ByCategory map[string]int64
	ByPriority map[string]int64
}

// ComplaintService is the complaint store: creation, scoped reads and
// feedback. Status changes go through TransitionService.
type ComplaintService struct {
	db       *gorm.DB
	cfg      *config.Config
	loc      *time.Location
	registry *department.Registry
	seq      sequence.Sequencer
	ledger   *LedgerService
	notifier *NotificationService
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewComplaintService(
	db *gorm.DB,
	cfg *config.Config,
	registry *department.Registry,
	seq sequence.Sequencer,
	ledger *LedgerService,
	notifier *NotificationService,
	clk clock.Clock,
	m *metrics.Metrics,
) *ComplaintService {
	return &ComplaintService{
		db:       db,
		cfg:      cfg,
		loc:      cfg.Location(),
		registry: registry,
		seq:      seq,
		ledger:   ledger,
		notifier: notifier,
		clock:    clk,
		metrics:  m,
	}
}

func (s *ComplaintService) Create(ctx context.Context, caller identity.Caller, req *dto.CreateComplaintRequest) (*ComplaintView, error) {
	if caller.Role != identity.RoleStudent {
		return nil, fmt.Errorf("%w: only students submit complaints", ErrForbidden)
	}

	complaint, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}
	complaint.SubmitterID = caller.ID

	if err := s.insertWithDisplayID(ctx, complaint); err != nil {
		return nil, err
	}

	s.metrics.ComplaintsCreated.WithLabelValues(complaint.Category).Inc()
	slog.InfoContext(ctx, "complaint created",
		"complaint_id", complaint.ID,
		"display_id", complaint.DisplayID,
		"department", complaint.AssignedDepartment,
		"user_id", caller.ID,
	)

	if err := s.ledger.OnCreated(ctx, complaint.AssignedDepartment); err != nil {
		reportDependency(ctx, s.metrics, metrics.DependencyLedger, err,
			"complaint_id", complaint.ID, "department", complaint.AssignedDepartment)
	}
	if _, err := s.notifier.NotifyCreated(ctx, complaint); err != nil {
		reportDependency(ctx, s.metrics, metrics.DependencyNotification, err,
			"complaint_id", complaint.ID, "department", complaint.AssignedDepartment)
	}

	return s.View(ctx, caller, complaint), nil
}

func (s *ComplaintService) validateCreate(req *dto.CreateComplaintRequest) (*models.Complaint, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	switch {
	case title == "":
		return nil, validationf("title is required")
	case utf8.RuneCountInString(title) > models.MaxTitleLength:
		return nil, validationf("title exceeds %d characters", models.MaxTitleLength)
	case description == "":
		return nil, validationf("description is required")
	case utf8.RuneCountInString(description) > models.MaxDescriptionLen:
		return nil, validationf("description exceeds %d characters", models.MaxDescriptionLen)
	case !s.registry.Exists(req.Category):
		return nil, validationf("unknown category %q", req.Category)
	case len(req.Attachments) > MaxAttachments:
		return nil, validationf("at most %d attachments are allowed", MaxAttachments)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !oneOf(priority, models.Priorities) {
		return nil, validationf("unknown priority %q", priority)
	}

	return &models.Complaint{
		Category:           req.Category,
		Title:              title,
		Description:        description,
		Priority:           priority,
		Status:             models.StatusPending,
		AssignedDepartment: req.Category,
		Anonymous:          req.Anonymous,
		Attachments:        req.Attachments,
		Version:            1,
	}, nil
}

// insertWithDisplayID assigns the next display id of the creation day and
// inserts the complaint. The display id omits the day, so an id issued on
// an earlier day of the month can collide; the unique index catches that
// and the day's counter is moved past the highest id issued this month.
func (s *ComplaintService) insertWithDisplayID(ctx context.Context, complaint *models.Complaint) error {
	now := s.clock.Now().In(s.loc)
	day := now.Format("20060102")
	monthPrefix := s.cfg.DisplayIDPrefix + now.Format("0601")

	for attempt := 1; attempt <= maxDisplayIDAttempts; attempt++ {
		n, err := s.seq.Next(ctx, day, s.seedFor(now))
		if err != nil {
			return err
		}

		complaint.ID = uuid.Nil
		complaint.DisplayID = fmt.Sprintf("%s%04d", monthPrefix, n)
		complaint.CreatedAt = now
		complaint.UpdatedAt = now

		err = s.db.WithContext(ctx).Omit("StatusHistory").Create(complaint).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create complaint: %w", err)
		}

		s.metrics.ConflictRetries.Inc()
		slog.WarnContext(ctx, "display id collision", "display_id", complaint.DisplayID, "attempt", attempt)

		highest, err := s.highestIssued(ctx, monthPrefix)
		if err != nil {
			return err
		}
		if err := s.seq.Advance(ctx, day, highest); err != nil {
			return fmt.Errorf("failed to advance sequence %s: %w", day, err)
		}
	}
	return fmt.Errorf("%w: could not assign a unique display id", ErrConflict)
}

// seedFor counts the complaints created since local midnight of now.
func (s *ComplaintService) seedFor(now time.Time) sequence.SeedFunc {
	return func(ctx context.Context) (int64, error) {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		var count int64
		err := s.db.WithContext(ctx).Model(&models.Complaint{}).
			Where("created_at >= ? AND created_at < ?", midnight, midnight.AddDate(0, 0, 1)).
			Count(&count).Error
		return count, err
	}
}

func (s *ComplaintService) highestIssued(ctx context.Context, monthPrefix string) (int64, error) {
	var displayIDs []string
	err := s.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("display_id LIKE ?", monthPrefix+"%").
		Order("LENGTH(display_id) DESC, display_id DESC").
		Limit(1).
		Pluck("display_id", &displayIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read issued display ids: %w", err)
	}
	if len(displayIDs) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(strings.TrimPrefix(displayIDs[0], monthPrefix), 10, 64)
}

func (s *ComplaintService) Get(ctx context.Context, caller identity.Caller, id uuid.UUID) (*ComplaintView, error) {
	policy := access.For(caller)

	complaint, err := loadComplaint(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(complaint) {
		return nil, fmt.Errorf("%w: complaint %s is outside your scope", ErrForbidden, id)
	}

	views, err := s.views(ctx, policy, []models.Complaint{*complaint})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func loadComplaint(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	err := db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&complaint, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: complaint %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load complaint: %w", err)
	}
	return &complaint, nil
}

// List returns the complaints matching filter within the caller's scope,
// newest first.
func (s *ComplaintService) List(ctx context.Context, caller identity.Caller, filter dto.ComplaintFilter) ([]ComplaintView, error) {
	if filter.Status != "" && !oneOf(filter.Status, models.Statuses) {
		return nil, validationf("unknown status %q", filter.Status)
	}
	if filter.Priority != "" && !oneOf(filter.Priority, models.Priorities) {
		return nil, validationf("unknown priority %q", filter.Priority)
	}

	policy := access.For(caller)
	query := policy.Scope(s.db.WithContext(ctx).Model(&models.Complaint{}))

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(display_id) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	var complaints []models.Complaint
	if err := query.Order("created_at DESC").Order("display_id DESC").Find(&complaints).Error; err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return s.views(ctx, policy, complaints)
}

type groupCount struct {
	GroupKey string
	Count    int64
}

// Stats counts the caller's visible complaints by status, category and priority.
func (s *ComplaintService) Stats(ctx context.Context, caller identity.Caller) (*Stats, error) {
	policy := access.For(caller)
	stats := &Stats{
		ByStatus:   make(map[string]int64, len(models.Statuses)),
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64, len(models.Priorities)),
	}
	for _, status := range models.Statuses {
		stats.ByStatus[status] = 0
	}
	for _, priority := range models.Priorities {
		stats.ByPriority[priority] = 0
	}

	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"status", stats.ByStatus},
		{"category", stats.ByCategory},
		{"priority", stats.ByPriority},
	}
	for _, g := range groups {
		var rows []groupCount
		err := policy.Scope(s.db.WithContext(ctx).Model(&models.Complaint{})).
			Select(g.column + " AS group_key, COUNT(*) AS count").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count complaints by %s: %w", g.column, err)
		}
		for _, r := range rows {
			g.into[r.GroupKey] = r.Count
		}
	}

	for _, n := range stats.ByStatus {
		stats.Total += n
	}
	return stats, nil
}

// SubmitFeedback records the submitter's rating once, after resolution.
func (s *ComplaintService) SubmitFeedback(ctx context.Context, caller identity.Caller, id uuid.UUID, req *dto.FeedbackRequest) (*ComplaintView, error) {
	policy := access.For(caller)

	complaint, err := loadComplaint(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanSubmitFeedback(complaint) {
		return nil, fmt.Errorf("%w: only the submitter may give feedback", ErrForbidden)
	}

	comment := strings.TrimSpace(req.Comment)
	switch {
	case req.Rating < 1 || req.Rating > 5:
		return nil, validationf("rating must be between 1 and 5")
	case utf8.RuneCountInString(comment) > models.MaxFeedbackLength:
		return nil, validationf("comment exceeds %d characters", models.MaxFeedbackLength)
	case complaint.Status != models.StatusResolved:
		return nil, validationf("feedback is only accepted for resolved complaints")
	case complaint.Feedback.Submitted():
		return nil, validationf("feedback already submitted")
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status = ? AND feedback_submitted_at IS NULL", id, models.StatusResolved).
		Updates(map[string]any{
			"feedback_rating":       req.Rating,
			"feedback_comment":      comment,
			"feedback_submitted_at": now,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, validationf("feedback already submitted")
	}

	slog.InfoContext(ctx, "feedback submitted", "complaint_id", id, "display_id", complaint.DisplayID, "user_id", caller.ID)

	stored, err := loadComplaint(ctx, s.db, id)
	if err != nil {
		slog.WarnContext(ctx, "reload after feedback failed, returning applied state",
			"complaint_id", id, "error", err)
		rating := req.Rating
		stored = complaint
		stored.Feedback = models.Feedback{Rating: &rating, Comment: comment, SubmittedAt: &now}
		stored.Version++
		stored.UpdatedAt = now
	}
	return s.View(ctx, caller, stored), nil
}

// View presents a complaint the caller has already been authorized for.
// The complaint reflects a stored change, so a failed submitter lookup
// gives a masked view rather than an error.
func (s *ComplaintService) View(ctx context.Context, caller identity.Caller, complaint *models.Complaint) *ComplaintView {
	views, err := s.views(ctx, access.For(caller), []models.Complaint{*complaint})
	if err != nil {
		slog.WarnContext(ctx, "submitter lookup failed, masking identity",
			"complaint_id", complaint.ID, "error", err)
		return &ComplaintView{Complaint: complaint, Submitter: maskedSubmitter, Redacted: true}
	}
	return &views[0]
}

// views resolves submitter identities and applies the caller's redaction.
func (s *ComplaintService) views(ctx context.Context, policy access.Policy, complaints []models.Complaint) ([]ComplaintView, error) {
	ids := make([]uuid.UUID, 0, len(complaints))
	seen := make(map[uuid.UUID]bool, len(complaints))
	for _, c := range complaints {
		if !seen[c.SubmitterID] {
			seen[c.SubmitterID] = true
			ids = append(ids, c.SubmitterID)
		}
	}

	users := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) > 0 {
		var found []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to load submitters: %w", err)
		}
		for _, u := range found {
			users[u.ID] = u
		}
	}

	views := make([]ComplaintView, len(complaints))
	for i := range complaints {
		c := &complaints[i]
		views[i].Complaint = c

		if !policy.RevealsSubmitter(c) {
			views[i].Redacted = true
			views[i].Submitter = maskedSubmitter
			continue
		}

		u := users[c.SubmitterID]
		views[i].Submitter = Submitter{
			ID:        c.SubmitterID.String(),
			Name:      u.Name,
			Email:     u.Email,
			StudentID: u.StudentID,
		}
	}
	return views, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
