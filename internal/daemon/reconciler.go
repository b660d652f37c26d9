package daemon

import (
	"context"
	"log/slog"
	"time"
)

// Reconcilable runs one reconciliation pass and reports how many stale
// windows it dropped.
type Reconcilable interface {
	ReconcileNow(ctx context.Context) (int, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it. X does
// not report destruction of windows whose events were never selected, and
// the owner registry only reaches disk here.
type Reconciler struct {
	interval time.Duration
	target   Reconcilable
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, target Reconcilable) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		target:   target,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	removed, err := r.target.ReconcileNow(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("reconciler: pass failed", "error", err)
		}
		return
	}
	if removed > 0 {
		r.logger.Info("reconciler: dropped vanished windows", "count", removed)
	}
}

// reconcile drops tracked windows the X server no longer knows and saves
// the owner registry if it changed. Runs on the service loop.
func (s *Service) reconcile() int {
	removed := 0
	for _, w := range s.windows.Windows() {
		if s.windows.Exists(w.ID) {
			continue
		}
		s.logger.Debug("reconciler: window vanished", "window", w.ID, "owner", s.mgr.GetWindowOwner(w.ID))
		s.windowDestroyed(w.ID)
		removed++
	}
	s.saveRegistry()
	return removed
}
