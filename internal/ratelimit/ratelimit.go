// Package ratelimit provides cross-worker admission control for named
// external resources. Each resource is limited along two independent
// dimensions at once: requests per minute and cost units (tokens) per
// minute. Both dimensions are continuously-refilling token buckets capped at
// one minute's budget.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// recheckInterval bounds how long an Acquire sleeps before re-contending for
// the buckets, so no waiter is starved behind a single long computed wait.
const recheckInterval = 5 * time.Second

// Limiter enforces the dual request/token budget for one resource name.
// All workers dispatching to the same resource share one Limiter.
type Limiter struct {
	name string
	log  *slog.Logger

	mu   sync.Mutex
	last time.Time

	reqCapacity float64 // per-minute cap; <= 0 disables the dimension
	tokCapacity float64
	reqLevel    float64
	tokLevel    float64

	// now is split out so tests can drive refill without wall-clock sleeps.
	now func() time.Time
}

// NewLimiter creates a limiter with the given per-minute caps. Buckets start
// full, so a burst of up to one minute's budget is admitted immediately.
func NewLimiter(name string, rpm, tpm float64) *Limiter {
	if rpm < 0 {
		rpm = 0
	}
	if tpm < 0 {
		tpm = 0
	}
	l := &Limiter{
		name:        name,
		log:         slog.Default().With(slog.String("component", "ratelimit"), slog.String("resource", name)),
		reqCapacity: rpm,
		tokCapacity: tpm,
		reqLevel:    rpm,
		tokLevel:    tpm,
		now:         time.Now,
	}
	l.last = l.now()
	return l
}

// refill advances both buckets by the elapsed wall time. Caller holds mu.
func (l *Limiter) refill() {
	now := l.now()
	dt := now.Sub(l.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	l.last = now
	if l.reqCapacity > 0 {
		l.reqLevel = min(l.reqCapacity, l.reqLevel+dt*l.reqCapacity/60)
	}
	if l.tokCapacity > 0 {
		l.tokLevel = min(l.tokCapacity, l.tokLevel+dt*l.tokCapacity/60)
	}
}

// Acquire blocks until both dimensions have headroom for the given costs,
// then debits both and returns nil. Disabled dimensions admit freely. The
// only error ever returned is ctx.Err() when the context ends first; callers
// are expected to run under the orchestrator's per-task timeout, since a
// saturated resource can otherwise block for an arbitrarily long time.
func (l *Limiter) Acquire(ctx context.Context, reqCost, tokenCost float64) error {
	for {
		l.mu.Lock()
		l.refill()

		needReq := 0.0
		if l.reqCapacity > 0 {
			needReq = reqCost - l.reqLevel
		}
		needTok := 0.0
		if l.tokCapacity > 0 {
			needTok = tokenCost - l.tokLevel
		}

		if needReq <= 0 && needTok <= 0 {
			if l.reqCapacity > 0 {
				l.reqLevel -= reqCost
			}
			if l.tokCapacity > 0 {
				l.tokLevel -= tokenCost
			}
			l.mu.Unlock()
			return nil
		}

		// Time until each dimension can admit this call.
		wait := 10 * time.Millisecond
		if needReq > 0 {
			wait = max(wait, secs(needReq*60/l.reqCapacity))
		}
		if needTok > 0 {
			wait = max(wait, secs(needTok*60/l.tokCapacity))
		}
		l.mu.Unlock()

		sleep := min(wait, recheckInterval)
		l.log.Debug("throttled",
			"sleep", sleep, "need_req", needReq, "need_tok", needTok,
			"rpm", l.reqCapacity, "tpm", l.tokCapacity)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Registry hands out one shared Limiter per resource name. It is an explicit
// object injected into the orchestrator and judge at construction time, so
// tests stay hermetic; its lifetime is the run, not the process.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry creates an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Limiter returns the shared limiter for key, creating it lazily with the
// given caps. Caps passed on later calls for an existing key are ignored.
func (r *Registry) Limiter(key string, rpm, tpm float64) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := NewLimiter(key, rpm, tpm)
	r.limiters[key] = l
	return l
}
