package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/rapid-ticketing/internal/observability"
	"github.com/spec-kit/rapid-ticketing/internal/persistence"
	"github.com/spec-kit/rapid-ticketing/internal/service"
)

// AlertScanner is the scan entry point the worker drives.
type AlertScanner interface {
	RunScan(ctx context.Context, now time.Time) (service.ScanStats, error)
}

// AlertWorker runs the alert scan once at startup and then on a fixed period.
// Overlapping runs are skipped, not queued: the shared lock covers other
// instances, the local mutex covers a slow run in this process.
type AlertWorker struct {
	scanner  AlertScanner
	lock     persistence.ScanLock
	local    persistence.ScanLock
	interval time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAlertWorker constructs the worker.
func NewAlertWorker(scanner AlertScanner, lock persistence.ScanLock, interval time.Duration, metrics *observability.Metrics, logger *zap.Logger) *AlertWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &AlertWorker{
		scanner:  scanner,
		lock:     lock,
		local:    persistence.NewLocalScanLock(),
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start launches the scan loop; it returns when ctx is cancelled.
func (w *AlertWorker) Start(ctx context.Context) {
	go func() {
		w.RunOnce(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce attempts a single scan pass; a held lock is a silent skip.
func (w *AlertWorker) RunOnce(ctx context.Context) {
	ok, err := w.local.TryLock(ctx)
	if err != nil || !ok {
		w.metrics.RecordScanSkip()
		w.logger.Debug("alert scan skipped: previous run still executing")
		return
	}
	defer w.local.Unlock(ctx) //nolint:errcheck

	if w.lock != nil {
		acquired, err := w.lock.TryLock(ctx)
		if err != nil {
			w.logger.Warn("alert scan lock unavailable", zap.Error(err))
			return
		}
		if !acquired {
			w.metrics.RecordScanSkip()
			w.logger.Debug("alert scan skipped: lock held by another instance")
			return
		}
		defer func() {
			if err := w.lock.Unlock(ctx); err != nil {
				w.logger.Warn("alert scan unlock failed", zap.Error(err))
			}
		}()
	}

	if _, err := w.scanner.RunScan(ctx, time.Now()); err != nil {
		w.logger.Warn("alert scan failed", zap.Error(err))
	}
}
