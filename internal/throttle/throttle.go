// Package throttle bounds how many items a stage may execute at once. Each
// named lane owns a weighted semaphore; a claim does not grant execution, so
// the orchestrator suspends each item at Acquire until the lane has a slot,
// bounded by the caller's context.
package throttle

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Registry holds one semaphore per named lane. Lanes are fixed at
// construction; asking for an unknown lane is a programming error.
type Registry struct {
	limits map[string]int64
	sems   map[string]*semaphore.Weighted
}

// NewRegistry builds a registry from lane concurrency limits. Limits below
// one are raised to one so a misconfigured lane degrades to serial execution
// instead of deadlocking.
func NewRegistry(limits map[string]int) *Registry {
	reg := &Registry{
		limits: make(map[string]int64, len(limits)),
		sems:   make(map[string]*semaphore.Weighted, len(limits)),
	}
	for lane, limit := range limits {
		if limit < 1 {
			limit = 1
		}
		reg.limits[lane] = int64(limit)
		reg.sems[lane] = semaphore.NewWeighted(int64(limit))
	}
	return reg
}

// Limit returns the configured concurrency for a lane, zero when unknown.
func (r *Registry) Limit(lane string) int {
	return int(r.limits[lane])
}

// Acquire blocks until a permit for the lane is available or the context is
// done.
func (r *Registry) Acquire(ctx context.Context, lane string) (*Permit, error) {
	sem, ok := r.sems[lane]
	if !ok {
		return nil, fmt.Errorf("unknown throttle lane %q", lane)
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Permit{sem: sem}, nil
}

// TryAcquire grabs a permit without blocking. The second return is false when
// the lane is saturated.
func (r *Registry) TryAcquire(lane string) (*Permit, bool) {
	sem, ok := r.sems[lane]
	if !ok {
		return nil, false
	}
	if !sem.TryAcquire(1) {
		return nil, false
	}
	return &Permit{sem: sem}, true
}

// Permit is a held execution slot. Release is idempotent so deferred cleanup
// paths can call it without double-freeing the slot.
type Permit struct {
	sem  *semaphore.Weighted
	once sync.Once
}

// Release hands the slot back.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.sem.Release(1)
	})
}
