package registry

import (
	"context"
	"time"

	"pkt.systems/pslog"

	ppotel "github.com/timvw/pane-pilot/internal/otel"
)

const (
	// DefaultSweepInterval is how often the janitor runs.
	DefaultSweepInterval = time.Minute
	// DefaultMaxAge is how long a finished execution stays queryable.
	DefaultMaxAge = 60 * time.Minute
)

// Janitor periodically evicts old terminal executions from a Registry.
type Janitor struct {
	Registry *Registry
	Interval time.Duration
	MaxAge   time.Duration
	Metrics  *ppotel.Metrics

	now func() time.Time
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := pslog.Ctx(ctx)
	log.Debug("janitor started", "interval", interval.String(), "max_age", j.maxAge().String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs a single sweep and returns the number of evictions.
func (j *Janitor) SweepOnce(ctx context.Context) int {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	n := j.Registry.Sweep(now(), j.maxAge())
	if n > 0 {
		pslog.Ctx(ctx).Info("swept finished executions", "removed", n, "remaining", j.Registry.Len())
	}
	j.Metrics.RecordSwept(ctx, n)
	return n
}

func (j *Janitor) maxAge() time.Duration {
	if j.MaxAge <= 0 {
		return DefaultMaxAge
	}
	return j.MaxAge
}
