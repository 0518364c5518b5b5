// Package sweeper runs the periodic maintenance passes of the reservation
// engine: no-show forfeiture, extension offers, ending-soon reminders,
// waitlist expiry, recurrence generation and notification pruning.  A
// single ticker drives every pass so their relative order is stable within
// one tick.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sweep is one named maintenance pass.  Run returns how many rows it
// affected.
type Sweep struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Runner executes the registered sweeps on a fixed interval.  When a Redis
// client is configured, a SET NX advisory lock keeps multiple replicas from
// sweeping concurrently; without Redis every replica sweeps, which is safe
// because all passes are idempotent, just wasteful.
type Runner struct {
	Sweeps   []Sweep
	Interval time.Duration
	Redis    *redis.Client
	LockKey  string
}

// NewRunner constructs a Runner.  interval must be positive.
func NewRunner(sweeps []Sweep, interval time.Duration, rdb *redis.Client) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		Sweeps:   sweeps,
		Interval: interval,
		Redis:    rdb,
		LockKey:  "sweeper:lock",
	}
}

// Run blocks, sweeping once per interval until the context is cancelled.
// The first pass runs immediately so a fresh deployment converges without
// waiting out a full interval.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if !r.acquireLock(ctx) {
		return
	}
	r.RunOnce(ctx)
}

// RunOnce executes every sweep in order.  A failing sweep is logged and
// never stops the rest of the batch.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, s := range r.Sweeps {
		n, err := s.Run(ctx)
		if err != nil {
			log.Printf("sweeper: %s: %v", s.Name, err)
			continue
		}
		if n > 0 {
			log.Printf("sweeper: %s affected %d rows", s.Name, n)
		}
	}
}

// acquireLock claims the advisory lock for one interval.  Redis being down
// degrades to sweeping anyway rather than not at all.
func (r *Runner) acquireLock(ctx context.Context) bool {
	if r.Redis == nil {
		return true
	}
	ok, err := r.Redis.SetNX(ctx, r.LockKey, "1", r.Interval).Result()
	if err != nil {
		log.Printf("sweeper: lock acquire failed, sweeping without it: %v", err)
		return true
	}
	return ok
}
