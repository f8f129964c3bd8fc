package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Escalator is the part of the transition engine the sweep drives.
type Escalator interface {
	Overdue(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	Escalate(ctx context.Context, id uuid.UUID, remarks string) (*models.Complaint, error)
}

type SweepReport struct {
	StartedAt  time.Time
	Cutoff     time.Time
	Candidates int
	Escalated  int
	Skipped    int
	Failed     []uuid.UUID
	Duration   time.Duration
}

// EscalationService runs the overdue sweep on a cron schedule. Sweeps
// never overlap; a failure on one complaint does not stop the others.
type EscalationService struct {
	escalator Escalator
	days      int
	window    time.Duration
	schedule  string
	loc       *time.Location
	clock     clock.Clock
	metrics   *metrics.Metrics

	sweepMu sync.Mutex

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewEscalationService(escalator Escalator, cfg *config.Config, clk clock.Clock, m *metrics.Metrics) *EscalationService {
	return &EscalationService{
		escalator: escalator,
		days:      cfg.EscalationDays,
		window:    cfg.EscalationWindow(),
		schedule:  cfg.EscalationSchedule,
		loc:       cfg.Location(),
		clock:     clk,
		metrics:   m,
	}
}

// Start registers the sweep with the scheduler and starts it.
func (s *EscalationService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("escalation scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(s.loc))
	if _, err := c.AddFunc(s.schedule, s.tick); err != nil {
		s.cancel()
		return fmt.Errorf("invalid escalation schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c

	slog.Info("escalation scheduler started", "schedule", s.schedule, "window_days", s.days, "timezone", s.loc.String())
	return nil
}

// Stop cancels a running sweep and waits for it to return or for ctx to end.
func (s *EscalationService) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()

	select {
	case <-c.Stop().Done():
		slog.Info("escalation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EscalationService) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	// Errors are logged by Sweep; the next tick is the retry.
	if _, err := s.Sweep(ctx); errors.Is(err, ErrSweepRunning) {
		slog.Warn("scheduled escalation sweep skipped, previous sweep still running")
	}
}

// ErrSweepRunning is returned by Sweep while another sweep is in progress.
var ErrSweepRunning = fmt.Errorf("%w: escalation sweep already running", ErrConflict)

// Sweep escalates every overdue complaint once. It does not wait for a
// sweep already in progress.
func (s *EscalationService) Sweep(ctx context.Context) (*SweepReport, error) {
	if !s.sweepMu.TryLock() {
		return nil, ErrSweepRunning
	}
	defer s.sweepMu.Unlock()

	start := s.clock.Now()
	report := &SweepReport{StartedAt: start, Cutoff: start.Add(-s.window)}
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.SweepDuration.Observe(report.Duration.Seconds())
	}()

	slog.InfoContext(ctx, "escalation sweep started", "cutoff", report.Cutoff)

	ids, err := s.escalator.Overdue(ctx, report.Cutoff)
	if err != nil {
		s.metrics.SweepRuns.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "escalation sweep failed", "action", "escalation_sweep", "error", err)
		return report, err
	}
	report.Candidates = len(ids)

	remarks := fmt.Sprintf("Auto-escalated after %d days without resolution", s.days)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		complaint, err := s.escalator.Escalate(ctx, id, remarks)
		switch {
		case err == nil:
			report.Escalated++
			s.metrics.Escalations.Inc()
			slog.InfoContext(ctx, "complaint escalated", "complaint_id", id, "display_id", complaint.DisplayID)
		case errors.Is(err, ErrConflict):
			report.Skipped++
			slog.InfoContext(ctx, "complaint no longer eligible for escalation", "complaint_id", id)
		default:
			report.Failed = append(report.Failed, id)
			slog.ErrorContext(ctx, "failed to escalate complaint", "complaint_id", id, "action", "escalate", "error", err)
		}
	}

	result := "ok"
	if len(report.Failed) > 0 {
		result = "partial"
	}
	s.metrics.SweepRuns.WithLabelValues(result).Inc()

	slog.InfoContext(ctx, "escalation sweep complete",
		"candidates", report.Candidates,
		"escalated", report.Escalated,
		"skipped", report.Skipped,
		"failed", len(report.Failed),
	)
	return report, ctx.Err()
}
