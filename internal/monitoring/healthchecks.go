package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMER = 15 * time.Second

type CheckFunc func(ctx context.Context) error

// Registry tracks the last known health of each optional backend.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]*atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]*atomic.Bool)}
}

func (r *Registry) flag(name string) *atomic.Bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	healthy, ok := r.checks[name]
	if !ok {
		healthy = &atomic.Bool{}
		healthy.Store(true)
		r.checks[name] = healthy
	}
	return healthy
}

// Snapshot returns the health of every monitored backend.
func (r *Registry) Snapshot() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.checks))
	for name, healthy := range r.checks {
		out[name] = healthy.Load()
	}
	return out
}

// Monitor runs check immediately and then on every tick until ctx is done.
func (r *Registry) Monitor(ctx context.Context, name string, interval time.Duration, check CheckFunc) {
	healthy := r.flag(name)
	run := func() {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		err := check(checkCtx)
		healthy.Store(err == nil)
		if err != nil {
			slog.Warn("[HealthCheck] Backend is unhealthy",
				slog.String("backend", name),
				slog.String("error", err.Error()))
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
