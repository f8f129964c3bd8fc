package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/sequence"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type env struct {
	db          *gorm.DB
	cfg         *config.Config
	clock       *clock.FakeClock
	metrics     *metrics.Metrics
	ledger      *LedgerService
	notifier    *NotificationService
	complaints  *ComplaintService
	transitions *TransitionService
	escalation  *EscalationService
	analytics   *AnalyticsService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		DisplayIDPrefix:    "NFSU",
		Timezone:           "UTC",
		EscalationDays:     7,
		EscalationSchedule: "0 0 * * *",
	}
	clk := clock.Fake(day0)
	m := metrics.New(prometheus.NewRegistry())

	ledger := NewLedgerService(db)
	notifier := NewNotificationService(db, nil, clk, m)
	transitions := NewTransitionService(db, ledger, notifier, clk, m)
	registry := department.Default()
	complaints := NewComplaintService(db, cfg, registry, sequence.NewDB(db), ledger, notifier, clk, m)

	return &env{
		db:          db,
		cfg:         cfg,
		clock:       clk,
		metrics:     m,
		ledger:      ledger,
		notifier:    notifier,
		complaints:  complaints,
		transitions: transitions,
		escalation:  NewEscalationService(transitions, cfg, clk, m),
		analytics:   NewAnalyticsService(db, complaints, registry, cfg.Location(), clk),
	}
}

func callerOf(u models.User) identity.Caller {
	return identity.Caller{ID: u.ID, Role: identity.Role(u.Role), Department: u.Department}
}

func (e *env) submit(t *testing.T, student models.User, category, title string, anonymous bool) *models.Complaint {
	t.Helper()

	view, err := e.complaints.Create(context.Background(), callerOf(student), &dto.CreateComplaintRequest{
		Category:    category,
		Title:       title,
		Description: "Details about " + title,
		Anonymous:   anonymous,
	})
	require.NoError(t, err)
	return view.Complaint
}

func (e *env) move(t *testing.T, actor models.User, c *models.Complaint, status, remarks string) *models.Complaint {
	t.Helper()

	updated, err := e.transitions.Apply(context.Background(), callerOf(actor), c.ID, &dto.TransitionRequest{
		Status:  status,
		Remarks: remarks,
	})
	require.NoError(t, err)
	return updated
}

func (e *env) notifications(t *testing.T, recipient models.User) []models.Notification {
	t.Helper()

	var out []models.Notification
	require.NoError(t, e.db.Where("recipient_id = ?", recipient.ID).Order("created_at ASC").Find(&out).Error)
	return out
}

var errStoreDown = errors.New("store unavailable")

// failReads makes every SELECT against table fail while armed returns true.
func failReads(t *testing.T, db *gorm.DB, table string, armed func() bool) {
	t.Helper()

	name := "test:fail_reads_" + uuid.NewString()
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if armed() && tx.Statement.Table == table {
			_ = tx.AddError(errStoreDown)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Query().Remove(name) })
}

func (e *env) historyLen(t *testing.T, c *models.Complaint) int64 {
	t.Helper()

	var n int64
	require.NoError(t, e.db.Model(&models.StatusChange{}).Where("complaint_id = ?", c.ID).Count(&n).Error)
	return n
}
