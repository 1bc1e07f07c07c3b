package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Rayane1997/app-price-tracker/internal/store"
	"github.com/Rayane1997/app-price-tracker/internal/tracker"
	"github.com/Rayane1997/app-price-tracker/logger"
)

// ProductSource lists the products eligible for scheduling.
type ProductSource interface {
	ListActiveProducts(ctx context.Context) ([]store.Product, error)
}

// ProductTracker runs one tracking attempt.
type ProductTracker interface {
	Track(ctx context.Context, productID uint) (*tracker.Result, error)
}

// Worker periodically sweeps active products and tracks the ones whose
// check frequency has elapsed. Products on the same domain still serialize
// through the tracker's rate limiter; the concurrency bound here only caps
// in-flight attempts.
type Worker struct {
	source      ProductSource
	tracker     ProductTracker
	interval    time.Duration
	concurrency int
	cron        *cron.Cron
	now         func() time.Time
	log         *logger.Logger
}

// New creates a scheduling worker.
func New(source ProductSource, t ProductTracker, interval time.Duration, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		source:      source,
		tracker:     t,
		interval:    interval,
		concurrency: concurrency,
		cron:        cron.New(),
		now:         time.Now,
		log:         logger.ForWorker(),
	}
}

// Start runs one sweep immediately and then on every interval tick until
// ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc("@every "+w.interval.String(), func() {
		w.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	w.log.Info().Dur("interval", w.interval).Int("concurrency", w.concurrency).Msg("Worker started")
	w.cron.Start()
	w.RunOnce(ctx)

	<-ctx.Done()
	w.Stop()
	return ctx.Err()
}

// Stop halts the schedule and waits for a running sweep's cron slot.
func (w *Worker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.log.Info().Msg("Worker stopped")
}

// RunOnce sweeps every active product once, tracking the due ones with
// bounded concurrency. Returns the number of products tracked.
func (w *Worker) RunOnce(ctx context.Context) int {
	products, err := w.source.ListActiveProducts(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to list active products")
		return 0
	}

	due := w.filterDue(products)
	w.log.Info().Int("active", len(products)).Int("due", len(due)).Msg("Sweeping products")
	if len(due) == 0 {
		return 0
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, w.concurrency)
	for _, product := range due {
		select {
		case <-ctx.Done():
			wg.Wait()
			return 0
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := w.tracker.Track(ctx, id); err != nil {
				w.log.Error().Err(err).Uint("product_id", id).Msg("Tracking attempt errored")
			}
		}(product.ID)
	}
	wg.Wait()

	return len(due)
}

// filterDue keeps products never checked or whose check frequency has
// elapsed since the last check.
func (w *Worker) filterDue(products []store.Product) []store.Product {
	now := w.now()
	var due []store.Product
	for _, p := range products {
		if p.LastCheckedAt == nil {
			due = append(due, p)
			continue
		}
		frequency := time.Duration(p.CheckFrequencyHours) * time.Hour
		if now.Sub(*p.LastCheckedAt) >= frequency {
			due = append(due, p)
		}
	}
	return due
}
