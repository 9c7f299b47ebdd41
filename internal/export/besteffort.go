package export

import (
	"context"
	"fmt"
	"time"

	"github.com/genera/compass/internal/logging"
	"github.com/genera/compass/internal/model"
)

// BestEffort wraps an Exporter with a timeout per attempt, an optional
// retry and a rate limit. It never returns an error: the outcome is
// reported in the status only.
type BestEffort struct {
	exporter Exporter
	limiter  *Limiter
	timeout  time.Duration
	retries  int
	logger   *logging.Logger
}

// NewBestEffort wraps exp with the limits from cfg
func NewBestEffort(exp Exporter, cfg model.ExportConfig, logger *logging.Logger) *BestEffort {
	if exp == nil {
		exp = Nop{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}

	return &BestEffort{
		exporter: exp,
		limiter:  NewLimiter(rps, 1+retries),
		timeout:  timeout,
		retries:  retries,
		logger:   logger.With("component", "export", "backend", exp.Name()),
	}
}

// Backend returns the wrapped backend name
func (b *BestEffort) Backend() string {
	return b.exporter.Name()
}

// Export appends rec, retrying once on failure when configured
func (b *BestEffort) Export(ctx context.Context, rec Record) model.ExportStatus {
	status := model.ExportStatus{Backend: b.exporter.Name()}
	if _, ok := b.exporter.(Nop); ok {
		return status
	}

	dest := b.exporter.Destination()
	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		status.Attempts++
		lastErr = b.attempt(ctx, dest, rec)
		if lastErr == nil {
			status.Exported = true
			b.logger.InfoContext(ctx, "row exported", "destination", dest, "attempts", status.Attempts)
			return status
		}

		b.logger.WarnContext(ctx, "export attempt failed", "destination", dest, "attempt", status.Attempts, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}

	err := &Error{Backend: b.exporter.Name(), Destination: dest, Attempts: status.Attempts, Err: lastErr}
	status.Error = err.Error()
	b.logger.WarnContext(ctx, "export abandoned", "error", err)
	return status
}

// attempt bounds the rate-limit wait and one Append by the timeout, even if
// the backend ignores ctx
func (b *BestEffort) attempt(ctx context.Context, dest string, rec Record) error {
	attemptCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.limiter.Wait(attemptCtx, dest); err != nil {
		return fmt.Errorf("rate limited: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- b.exporter.Append(attemptCtx, rec)
	}()

	select {
	case err := <-done:
		return err
	case <-attemptCtx.Done():
		return attemptCtx.Err()
	}
}
