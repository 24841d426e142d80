package matching_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pitchpipe/internal/logging"
	"pitchpipe/internal/matching"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/testsupport"
)

func TestExecuteFoldsEnrichmentAndVerdict(t *testing.T) {
	st := matching.NewStage(testsupport.NewConfig(t), logging.NewNop())
	item := &queue.Item{
		ID:             1,
		CampaignID:     "camp-1",
		MediaTitle:     "The Deep Dive",
		VettingScore:   0.82,
		VettingJSON:    `{"score": 0.82, "rationale": "strong topical overlap"}`,
		EnrichmentJSON: `{"show_name": "The Deep Dive", "category": "technology", "audience_estimate": 52000, "contact_email": "host@deepdive.example"}`,
	}
	if err := st.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{
		"The Deep Dive",
		"camp-1",
		"0.82",
		"technology",
		"52000",
		"host@deepdive.example",
		"strong topical overlap",
	} {
		if !strings.Contains(item.MatchNotes, want) {
			t.Fatalf("match notes missing %q:\n%s", want, item.MatchNotes)
		}
	}
}

func TestExecuteWorksWithoutEnrichment(t *testing.T) {
	st := matching.NewStage(testsupport.NewConfig(t), logging.NewNop())
	item := &queue.Item{
		ID:           2,
		CampaignID:   "camp-2",
		MediaTitle:   "Quiet Show",
		VettingScore: 0.7,
		VettingJSON:  `{"score": 0.7}`,
	}
	if err := st.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(item.MatchNotes, "Quiet Show") {
		t.Fatalf("match notes missing title:\n%s", item.MatchNotes)
	}
}

func TestExecuteRejectsCorruptRecords(t *testing.T) {
	st := matching.NewStage(testsupport.NewConfig(t), logging.NewNop())

	err := st.Execute(context.Background(), &queue.Item{ID: 3, VettingJSON: "not json"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("corrupt verdict should be a validation error, got %v", err)
	}

	err = st.Execute(context.Background(), &queue.Item{ID: 4, VettingJSON: `{}`, EnrichmentJSON: "not json"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("corrupt enrichment should be a validation error, got %v", err)
	}
}

func TestPrepareRequiresVerdict(t *testing.T) {
	st := matching.NewStage(testsupport.NewConfig(t), logging.NewNop())
	if err := st.Prepare(context.Background(), &queue.Item{ID: 5}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
