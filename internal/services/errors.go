package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/getsentry/sentry-go"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency failure")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// reportDependency records a side effect that failed after its triggering
// change committed. The change stands; the failure is logged, counted and
// sent to Sentry.
func reportDependency(ctx context.Context, m *metrics.Metrics, dependency string, err error, attrs ...any) {
	err = fmt.Errorf("%w: %s: %w", ErrDependency, dependency, err)

	m.DependencyFailures.WithLabelValues(dependency).Inc()
	slog.ErrorContext(ctx, "best-effort side effect failed",
		append([]any{"action", dependency, "error", err}, attrs...)...)

	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("dependency", dependency)
		hub.CaptureException(err)
	})
}
