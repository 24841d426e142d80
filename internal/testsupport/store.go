package testsupport

import (
	"context"
	"fmt"
	"testing"

	"pitchpipe/internal/config"
	"pitchpipe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDiscovery inserts a work item for tests using the provided store.
func NewDiscovery(t testing.TB, store *queue.Store, campaignID, mediaID string) *queue.Item {
	t.Helper()

	item, err := store.NewDiscovery(context.Background(), campaignID, mediaID,
		fmt.Sprintf("Episode %s", mediaID), "https://example.com/audio/"+mediaID+".mp3", 0)
	if err != nil {
		t.Fatalf("store.NewDiscovery: %v", err)
	}
	return item
}

// CompleteStagesThrough marks every stage up to and including the given stage
// completed, claiming and releasing through the real protocol.
func CompleteStagesThrough(t testing.TB, store *queue.Store, itemID int64, through queue.Stage) {
	t.Helper()

	ctx := context.Background()
	for _, stage := range queue.Stages() {
		claimed, err := store.ClaimBatch(ctx, stage, "testsupport", 100, 0)
		if err != nil {
			t.Fatalf("claim %s: %v", stage, err)
		}
		found := false
		for _, item := range claimed {
			outcome := queue.OutcomeDeferred
			if item.ID == itemID {
				found = true
				outcome = queue.OutcomeCompleted
			}
			released, err := store.Release(ctx, stage, item.ID, "testsupport", outcome, "", nil)
			if err != nil {
				t.Fatalf("release %s: %v", stage, err)
			}
			if !released {
				t.Fatalf("release %s: claim was not owned", stage)
			}
		}
		if !found {
			t.Fatalf("item %d was not claimable for %s", itemID, stage)
		}
		if stage == through {
			return
		}
	}
}
