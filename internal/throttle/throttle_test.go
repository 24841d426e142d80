package throttle_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pitchpipe/internal/throttle"
)

func TestAcquireBoundsConcurrency(t *testing.T) {
	const limit = 3
	reg := throttle.NewRegistry(map[string]int{"transcription": limit})

	var (
		active  int64
		maxSeen int64
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			permit, err := reg.Acquire(context.Background(), "transcription")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer permit.Release()

			now := atomic.AddInt64(&active, 1)
			for {
				seen := atomic.LoadInt64(&maxSeen)
				if now <= seen || atomic.CompareAndSwapInt64(&maxSeen, seen, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&active, -1)
		}()
	}
	wg.Wait()

	if maxSeen > limit {
		t.Fatalf("observed %d concurrent holders, limit is %d", maxSeen, limit)
	}
}

func TestTryAcquireWhenSaturated(t *testing.T) {
	reg := throttle.NewRegistry(map[string]int{"vetting": 1})

	first, ok := reg.TryAcquire("vetting")
	if !ok {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if _, ok := reg.TryAcquire("vetting"); ok {
		t.Fatal("expected second TryAcquire to fail while lane saturated")
	}

	first.Release()
	second, ok := reg.TryAcquire("vetting")
	if !ok {
		t.Fatal("expected TryAcquire to succeed after release")
	}
	second.Release()
}

func TestAcquireRespectsContext(t *testing.T) {
	reg := throttle.NewRegistry(map[string]int{"pitch": 1})
	permit, ok := reg.TryAcquire("pitch")
	if !ok {
		t.Fatal("expected TryAcquire to succeed")
	}
	defer permit.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := reg.Acquire(ctx, "pitch"); err == nil {
		t.Fatal("expected Acquire to fail when context expires")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := throttle.NewRegistry(map[string]int{"match": 1})
	permit, ok := reg.TryAcquire("match")
	if !ok {
		t.Fatal("expected TryAcquire to succeed")
	}
	permit.Release()
	permit.Release()

	// A double release must not mint a second slot.
	first, ok := reg.TryAcquire("match")
	if !ok {
		t.Fatal("expected TryAcquire after release")
	}
	defer first.Release()
	if _, ok := reg.TryAcquire("match"); ok {
		t.Fatal("double release created an extra slot")
	}
}

func TestUnknownLane(t *testing.T) {
	reg := throttle.NewRegistry(map[string]int{"match": 1})
	if _, err := reg.Acquire(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown lane")
	}
	if _, ok := reg.TryAcquire("nope"); ok {
		t.Fatal("expected TryAcquire to fail for unknown lane")
	}
	if limit := reg.Limit("match"); limit != 1 {
		t.Fatalf("unexpected limit %d", limit)
	}
}

func TestLimitFloor(t *testing.T) {
	reg := throttle.NewRegistry(map[string]int{"enrichment": 0})
	if limit := reg.Limit("enrichment"); limit != 1 {
		t.Fatalf("expected floor of 1, got %d", limit)
	}
}
