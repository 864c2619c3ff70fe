package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
)

// Reclassifier is the part of the ticket service the sweep drives.
type Reclassifier interface {
	ListStaleProcessing(ctx context.Context, minAge time.Duration, limit int) ([]domain.Ticket, error)
	Reclassify(ctx context.Context, id string) (*domain.Ticket, error)
}

// ReclassifyWorker periodically finishes tickets whose classification was
// never stored.
type ReclassifyWorker struct {
	tickets Reclassifier
	cfg     config.SweepConfig
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewReclassifyWorker creates the worker.
func NewReclassifyWorker(tickets Reclassifier, cfg config.SweepConfig, logger *zap.Logger) *ReclassifyWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &ReclassifyWorker{tickets: tickets, cfg: cfg, logger: logger.Named("reclassify")}
}

// Start schedules the sweep. An empty schedule leaves the worker idle.
func (w *ReclassifyWorker) Start() error {
	if w.cfg.Schedule == "" {
		w.logger.Info("re-classification sweep disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(w.cfg.Schedule, func() {
		if _, err := w.RunOnce(context.Background()); err != nil {
			w.logger.Error("sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid CLASSIFY_SWEEP_SCHEDULE %q: %w", w.cfg.Schedule, err)
	}
	c.Start()
	w.cron = c
	w.logger.Info("re-classification sweep scheduled",
		zap.String("schedule", w.cfg.Schedule),
		zap.Duration("min_age", w.cfg.MinAge()))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to end.
func (w *ReclassifyWorker) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce sweeps one batch and returns how many tickets left Processing.
// Overlapping runs are skipped.
func (w *ReclassifyWorker) RunOnce(ctx context.Context) (int, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return 0, nil
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	stale, err := w.tickets.ListStaleProcessing(ctx, w.cfg.MinAge(), w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale tickets: %w", err)
	}

	var (
		finished int
		errs     []error
	)
	for _, t := range stale {
		updated, err := w.tickets.Reclassify(ctx, t.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticket %s: %w", t.ID, err))
			continue
		}
		if updated.Status != domain.TicketStatusProcessing {
			finished++
		}
	}
	if len(stale) > 0 {
		w.logger.Info("sweep complete", zap.Int("found", len(stale)), zap.Int("finished", finished))
	}
	return finished, errors.Join(errs...)
}
