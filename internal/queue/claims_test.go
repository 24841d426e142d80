package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pitchpipe/internal/queue"
	"pitchpipe/internal/testsupport"
)

func TestClaimBatchMutualExclusion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const itemCount = 40
	for i := 0; i < itemCount; i++ {
		testsupport.NewDiscovery(t, store, "camp-1", fmt.Sprintf("media-%02d", i))
	}

	const claimants = 8
	results := make([][]*queue.Item, claimants)
	errs := make([]error, claimants)

	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			claimant := fmt.Sprintf("worker-%d", idx)
			results[idx], errs[idx] = store.ClaimBatch(ctx, queue.StageEnrichment, claimant, 10, time.Hour)
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]string)
	total := 0
	for i := 0; i < claimants; i++ {
		if errs[i] != nil {
			t.Fatalf("claimant %d: %v", i, errs[i])
		}
		claimant := fmt.Sprintf("worker-%d", i)
		for _, item := range results[i] {
			if prior, dup := seen[item.ID]; dup {
				t.Fatalf("item %d claimed by both %s and %s", item.ID, prior, claimant)
			}
			seen[item.ID] = claimant
			st := item.State(queue.StageEnrichment)
			if st.Status != queue.StatusClaimed || st.Claim == nil || st.Claim.ClaimantID != claimant {
				t.Fatalf("claimed item %d has wrong state %#v", item.ID, st)
			}
			total++
		}
	}
	if total != itemCount {
		t.Fatalf("expected %d claims issued in total, got %d", itemCount, total)
	}
}

func TestClaimBatchHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		testsupport.NewDiscovery(t, store, "camp-1", fmt.Sprintf("media-%d", i))
	}

	claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-a", 3, time.Hour)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("expected 3 items, got %d", len(claimed))
	}

	zero, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-b", 0, time.Hour)
	if err != nil {
		t.Fatalf("ClaimBatch with zero limit: %v", err)
	}
	if len(zero) != 0 {
		t.Fatalf("zero limit must claim nothing, got %d", len(zero))
	}
}

func TestClaimBatchGatesOnPredecessor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewDiscovery(t, store, "camp-1", "media-1")

	claimed, err := store.ClaimBatch(ctx, queue.StageTranscription, "worker-a", 10, time.Hour)
	if err != nil {
		t.Fatalf("ClaimBatch: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatal("transcription must not be claimable before enrichment completes")
	}

	testsupport.CompleteStagesThrough(t, store, item.ID, queue.StageEnrichment)

	claimed, err = store.ClaimBatch(ctx, queue.StageTranscription, "worker-a", 10, time.Hour)
	if err != nil {
		t.Fatalf("ClaimBatch after predecessor completed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != item.ID {
		t.Fatalf("expected item claimable after enrichment, got %d items", len(claimed))
	}
}

func TestStaleClaimReclaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewDiscovery(t, store, "camp-1", "media-1")

	claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-dead", 1, time.Hour)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("initial claim: %v (%d items)", err, len(claimed))
	}

	// Fresh claim: a second claimant with a generous TTL must not steal it.
	stolen, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-b", 1, time.Hour)
	if err != nil {
		t.Fatalf("competing claim: %v", err)
	}
	if len(stolen) != 0 {
		t.Fatal("fresh claim must not be reclaimable")
	}

	// Once the claim is older than the TTL it becomes eligible again,
	// without consuming the item's retry budget.
	time.Sleep(20 * time.Millisecond)
	stolen, err = store.ClaimBatch(ctx, queue.StageEnrichment, "worker-b", 1, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("stale claim: %v", err)
	}
	if len(stolen) != 1 || stolen[0].ID != item.ID {
		t.Fatalf("expected stale claim takeover, got %d items", len(stolen))
	}
	st := stolen[0].State(queue.StageEnrichment)
	if st.Claim == nil || st.Claim.ClaimantID != "worker-b" {
		t.Fatalf("takeover did not replace claim token: %#v", st)
	}
	if st.Attempts != 0 {
		t.Fatalf("stale reclaim must not burn attempts, got %d", st.Attempts)
	}
}

func TestReclaimStaleSweep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewDiscovery(t, store, "camp-1", "media-1")
	testsupport.NewDiscovery(t, store, "camp-1", "media-2")

	claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-dead", 10, time.Hour)
	if err != nil || len(claimed) != 2 {
		t.Fatalf("claim: %v (%d items)", err, len(claimed))
	}

	time.Sleep(20 * time.Millisecond)
	reclaimed, err := store.ReclaimStale(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 2 {
		t.Fatalf("expected 2 reclaimed claims, got %d", reclaimed)
	}

	for _, item := range claimed {
		fetched, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		st := fetched.State(queue.StageEnrichment)
		if st.Status != queue.StatusPending || st.Claim != nil {
			t.Fatalf("expected reclaimed pending state, got %#v", st)
		}
	}

	// A second sweep finds nothing.
	reclaimed, err = store.ReclaimStale(ctx, 10*time.Millisecond)
	if err != nil || reclaimed != 0 {
		t.Fatalf("second sweep: %v reclaimed=%d", err, reclaimed)
	}
}

func TestReleaseOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()

	claim := func(t *testing.T, mediaID string) *queue.Item {
		t.Helper()
		item := testsupport.NewDiscovery(t, store, "camp-1", mediaID)
		claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-a", 100, time.Hour)
		if err != nil {
			t.Fatalf("ClaimBatch: %v", err)
		}
		for _, c := range claimed {
			if c.ID == item.ID {
				return c
			}
		}
		t.Fatalf("item %d not claimed", item.ID)
		return nil
	}

	t.Run("completed", func(t *testing.T) {
		item := claim(t, "completed")
		released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeCompleted, "", nil)
		if err != nil || !released {
			t.Fatalf("Release: %v released=%v", err, released)
		}
		fetched, _ := store.GetByID(ctx, item.ID)
		st := fetched.State(queue.StageEnrichment)
		if st.Status != queue.StatusCompleted || st.Claim != nil || st.LastError != "" {
			t.Fatalf("unexpected state after completion: %#v", st)
		}
	})

	t.Run("retry", func(t *testing.T) {
		item := claim(t, "retry")
		retryAt := time.Now().UTC().Add(time.Minute)
		released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeRetry, "upstream 503", &retryAt)
		if err != nil || !released {
			t.Fatalf("Release: %v released=%v", err, released)
		}
		fetched, _ := store.GetByID(ctx, item.ID)
		st := fetched.State(queue.StageEnrichment)
		if st.Status != queue.StatusPending || st.Attempts != 1 || st.LastError != "upstream 503" {
			t.Fatalf("unexpected state after retry: %#v", st)
		}
		if st.RetryAt == nil || !st.RetryAt.Equal(retryAt.Truncate(time.Nanosecond)) {
			t.Fatalf("retry_at not armed: %#v", st.RetryAt)
		}

		// The armed backoff keeps the item out of the next batch.
		claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-b", 100, time.Hour)
		if err != nil {
			t.Fatalf("ClaimBatch: %v", err)
		}
		for _, c := range claimed {
			if c.ID == item.ID {
				t.Fatal("item claimed before its retry backoff elapsed")
			}
			if _, err := store.Release(ctx, queue.StageEnrichment, c.ID, "worker-b", queue.OutcomeDeferred, "", nil); err != nil {
				t.Fatalf("cleanup release: %v", err)
			}
		}
	})

	t.Run("deferred preserves budget", func(t *testing.T) {
		item := claim(t, "deferred")
		released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeDeferred, "", nil)
		if err != nil || !released {
			t.Fatalf("Release: %v released=%v", err, released)
		}
		fetched, _ := store.GetByID(ctx, item.ID)
		st := fetched.State(queue.StageEnrichment)
		if st.Status != queue.StatusPending || st.Attempts != 0 || st.RetryAt != nil {
			t.Fatalf("deferred release must leave budget untouched: %#v", st)
		}
	})

	t.Run("failed", func(t *testing.T) {
		item := claim(t, "failed")
		released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeFailed, "invalid audio url", nil)
		if err != nil || !released {
			t.Fatalf("Release: %v released=%v", err, released)
		}
		fetched, _ := store.GetByID(ctx, item.ID)
		st := fetched.State(queue.StageEnrichment)
		if st.Status != queue.StatusFailed || st.Attempts != 1 || st.LastError != "invalid audio url" {
			t.Fatalf("unexpected state after failure: %#v", st)
		}
	})
}

func TestReleaseIsOwnershipGuarded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewDiscovery(t, store, "camp-1", "media-1")

	claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-a", 1, time.Hour)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %v (%d items)", err, len(claimed))
	}

	// Wrong claimant: no-op.
	released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-imposter", queue.OutcomeCompleted, "", nil)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released {
		t.Fatal("release by non-owner must be a no-op")
	}

	// Correct claimant succeeds once.
	released, err = store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeCompleted, "", nil)
	if err != nil || !released {
		t.Fatalf("owner release: %v released=%v", err, released)
	}

	// A duplicate release after the claim is gone is also a no-op.
	released, err = store.Release(ctx, queue.StageEnrichment, item.ID, "worker-a", queue.OutcomeFailed, "late", nil)
	if err != nil {
		t.Fatalf("duplicate release: %v", err)
	}
	if released {
		t.Fatal("duplicate release must be a no-op")
	}

	fetched, _ := store.GetByID(ctx, item.ID)
	st := fetched.State(queue.StageEnrichment)
	if st.Status != queue.StatusCompleted || st.LastError != "" {
		t.Fatalf("late release must not disturb final state: %#v", st)
	}
}

func TestLateReleaseAfterReclaimIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewDiscovery(t, store, "camp-1", "media-1")

	claimed, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-dead", 1, time.Hour)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %v (%d items)", err, len(claimed))
	}

	time.Sleep(20 * time.Millisecond)
	stolen, err := store.ClaimBatch(ctx, queue.StageEnrichment, "worker-b", 1, 10*time.Millisecond)
	if err != nil || len(stolen) != 1 {
		t.Fatalf("takeover: %v (%d items)", err, len(stolen))
	}

	// The presumed-dead worker wakes up and tries to finish. Its claim token
	// no longer matches, so nothing happens.
	released, err := store.Release(ctx, queue.StageEnrichment, item.ID, "worker-dead", queue.OutcomeCompleted, "", nil)
	if err != nil {
		t.Fatalf("late release: %v", err)
	}
	if released {
		t.Fatal("late release after takeover must be a no-op")
	}

	fetched, _ := store.GetByID(ctx, item.ID)
	st := fetched.State(queue.StageEnrichment)
	if st.Status != queue.StatusClaimed || st.Claim == nil || st.Claim.ClaimantID != "worker-b" {
		t.Fatalf("takeover claim disturbed by late release: %#v", st)
	}
}

func TestReleaseAllForRestartedProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewDiscovery(t, store, "camp-1", "media-1")
	testsupport.CompleteStagesThrough(t, store, item.ID, queue.StageEnrichment)
	other := testsupport.NewDiscovery(t, store, "camp-1", "media-2")

	if _, err := store.ClaimBatch(ctx, queue.StageTranscription, "claimant-1", 1, time.Hour); err != nil {
		t.Fatalf("claim transcription: %v", err)
	}
	if _, err := store.ClaimBatch(ctx, queue.StageEnrichment, "claimant-2", 10, time.Hour); err != nil {
		t.Fatalf("claim enrichment: %v", err)
	}

	released, err := store.ReleaseAllFor(ctx, "claimant-1")
	if err != nil {
		t.Fatalf("ReleaseAllFor: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released claim, got %d", released)
	}

	fetched, _ := store.GetByID(ctx, item.ID)
	if st := fetched.State(queue.StageTranscription); st.Status != queue.StatusPending || st.Claim != nil {
		t.Fatalf("claimant-1 claim not handed back: %#v", st)
	}
	fetchedOther, _ := store.GetByID(ctx, other.ID)
	if st := fetchedOther.State(queue.StageEnrichment); st.Status != queue.StatusClaimed {
		t.Fatalf("claimant-2 claim must survive: %#v", st)
	}
}
