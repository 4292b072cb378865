package service

import (
	"context"
	"log"
	"time"
)

// PruneWorker is the periodic background job that resets rate windows older
// than one hour and drops submission-log entries older than 24 hours. It
// never blocks submission handling: it takes the same locks the trackers use
// internally and nothing else.
type PruneWorker struct {
	rates    *RateTracker
	log      *SubmissionLog
	interval time.Duration
}

// NewPruneWorker creates a worker that ticks every interval.
func NewPruneWorker(rates *RateTracker, submissions *SubmissionLog, interval time.Duration) *PruneWorker {
	return &PruneWorker{
		rates:    rates,
		log:      submissions,
		interval: interval,
	}
}

// Start runs the prune loop until the context is cancelled.
func (w *PruneWorker) Start(ctx context.Context) {
	log.Printf("prune-worker: starting (interval=%s)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-ctx.Done():
			log.Println("prune-worker: stopping (context cancelled)")
			return
		}
	}
}

func (w *PruneWorker) tick() {
	windows := w.rates.ResetStale()
	entries := w.log.Prune()
	if windows > 0 || entries > 0 {
		log.Printf("prune-worker: reset %d stale rate windows, pruned %d submission entries",
			windows, entries)
	}
}
