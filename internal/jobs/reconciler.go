package jobs

import (
	"context"
	"sync"
	"time"

	"ebook-marketplace/internal/core/ports"
	"ebook-marketplace/pkg/logger"

	"github.com/rs/zerolog"
)

// ReconcileConfig controls how often and how far back the reconciler looks.
type ReconcileConfig struct {
	Interval     time.Duration // time between passes
	PendingAfter time.Duration // pending rows younger than this are left to the webhook
	AbandonAfter time.Duration // rows without a payment intent older than this are failed
}

// ReconcileJob periodically settles transactions whose webhook never arrived.
type ReconcileJob struct {
	reconciler ports.Reconciler
	cfg        ReconcileConfig
	log        zerolog.Logger
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReconcileJob creates the job. It does nothing until Start is called.
func NewReconcileJob(reconciler ports.Reconciler, cfg ReconcileConfig, log zerolog.Logger) *ReconcileJob {
	return &ReconcileJob{
		reconciler: reconciler,
		cfg:        cfg,
		log:        logger.Component(log, "reconcile"),
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// Start blocks, running one pass per interval until ctx is cancelled or Stop is called.
func (j *ReconcileJob) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.cfg.Interval).Msg("reconcile job started")

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("reconcile job stopped (context cancelled)")
			return
		case <-j.stop:
			j.log.Info().Msg("reconcile job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (j *ReconcileJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

// RunOnce performs a single reconciliation pass.
func (j *ReconcileJob) RunOnce(ctx context.Context) ports.ReconcileReport {
	now := j.now()
	report, err := j.reconciler.ReconcilePending(ctx, now.Add(-j.cfg.PendingAfter), now.Add(-j.cfg.AbandonAfter))
	if err != nil {
		j.log.Error().Err(err).Msg("reconcile pass failed")
		return report
	}
	if report.Scanned == 0 {
		return report
	}

	j.log.Info().
		Int("scanned", report.Scanned).
		Int("settled", report.Settled).
		Int("abandoned", report.Abandoned).
		Int("errors", report.Errors).
		Msg("reconcile pass finished")
	return report
}
