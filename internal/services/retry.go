package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ticketinventory/internal/domain"
)

const retryBackoff = 10 * time.Millisecond

// retrier re-runs an atomic unit that failed with ErrWriteConflict. Once the attempts
// are used up the caller gets ErrConflict, which is distinct from a capacity rejection.
type retrier struct {
	attempts int
	metrics  domain.MetricsRecorder
	logger   *slog.Logger
}

func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	attempts := r.attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}
		r.metrics.ObserveRetry(op)
		r.logger.Debug("write conflict", "operation", op, "attempt", attempt, "error", err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s aborted after %d attempts: %v", domain.ErrConflict, op, attempt, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return fmt.Errorf("%w: %s gave up after %d attempts: %v", domain.ErrConflict, op, attempts, err)
}

type nopMetrics struct{}

func (nopMetrics) ObserveReservation(string)                    {}
func (nopMetrics) ObserveCriticalSection(string, time.Duration) {}
func (nopMetrics) ObserveRetry(string)                          {}

func orNopMetrics(m domain.MetricsRecorder) domain.MetricsRecorder {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

func orDefaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
