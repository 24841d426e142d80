package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the claim lifecycle of one stage on one item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome describes how a stage execution finished and therefore how its
// claim is released. Deferred is the resource-exhaustion path: the item goes
// back to pending without consuming its retry budget.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRetry     Outcome = "retry"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) status() (Status, error) {
	switch o {
	case OutcomeCompleted:
		return StatusCompleted, nil
	case OutcomeFailed:
		return StatusFailed, nil
	case OutcomeRetry, OutcomeDeferred:
		return StatusPending, nil
	default:
		return "", fmt.Errorf("unknown release outcome %q", string(o))
	}
}

// claimTimeFormat is RFC 3339 with a fixed-width nanosecond fraction so the
// acquired_at strings inside claim tokens compare lexicographically in SQL.
const claimTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ClaimToken records who holds a stage claim and since when. It is persisted
// as a JSON string in the item's {stage}_claim_token column; the ledger is
// the only writer.
type ClaimToken struct {
	ClaimantID string    `json:"claimant_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// MarshalJSON pins acquired_at to the fixed-width UTC format used by the
// staleness predicates.
func (t ClaimToken) MarshalJSON() ([]byte, error) {
	type wire struct {
		ClaimantID string `json:"claimant_id"`
		AcquiredAt string `json:"acquired_at"`
	}
	return json.Marshal(wire{
		ClaimantID: t.ClaimantID,
		AcquiredAt: t.AcquiredAt.UTC().Format(claimTimeFormat),
	})
}

// UnmarshalJSON accepts the fixed-width format and plain RFC 3339.
func (t *ClaimToken) UnmarshalJSON(data []byte) error {
	type wire struct {
		ClaimantID string `json:"claimant_id"`
		AcquiredAt string `json:"acquired_at"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := time.Parse(claimTimeFormat, w.AcquiredAt)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, w.AcquiredAt)
		if err != nil {
			return fmt.Errorf("parse claim acquired_at %q: %w", w.AcquiredAt, err)
		}
	}
	t.ClaimantID = w.ClaimantID
	t.AcquiredAt = parsed.UTC()
	return nil
}

// Age returns how long the claim has been held.
func (t ClaimToken) Age(now time.Time) time.Duration {
	return now.Sub(t.AcquiredAt)
}

// Stale reports whether the claim has outlived the TTL and is reclaimable.
func (t ClaimToken) Stale(ttl time.Duration, now time.Time) bool {
	return t.Age(now) > ttl
}

func encodeClaimToken(token ClaimToken) (string, error) {
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode claim token: %w", err)
	}
	return string(raw), nil
}

func decodeClaimToken(raw string) (*ClaimToken, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var token ClaimToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("decode claim token: %w", err)
	}
	return &token, nil
}

// StageState is one stage's slice of a work item: claim lifecycle plus the
// retry bookkeeping the orchestrator consults.
type StageState struct {
	Status    Status
	Claim     *ClaimToken
	Attempts  int
	LastError string
	RetryAt   *time.Time
}

// Item represents one campaign/media match record moving through the
// pipeline, persisted in SQLite. Stage claim fields are owned by the claim
// operations; Update persists business fields only.
type Item struct {
	ID                int64
	CampaignID        string
	MediaID           string
	MediaTitle        string
	AudioURL          string
	DeclaredSizeBytes int64
	EnrichmentJSON    string
	TranscriptPath    string
	DescriptionText   string
	VettingScore      float64
	VettingJSON       string
	MatchNotes        string
	PitchDraft        string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	States map[Stage]*StageState
}

// State returns the stage state, never nil.
func (i *Item) State(stage Stage) *StageState {
	if i.States == nil {
		i.States = make(map[Stage]*StageState, len(pipelineOrder))
	}
	st, ok := i.States[stage]
	if !ok {
		st = &StageState{Status: StatusPending}
		i.States[stage] = st
	}
	return st
}

// CurrentStage returns the first stage that has not completed, along with its
// status. The second return is false once every stage is completed.
func (i *Item) CurrentStage() (Stage, Status, bool) {
	for _, stage := range pipelineOrder {
		st := i.State(stage)
		if st.Status != StatusCompleted {
			return stage, st.Status, true
		}
	}
	return "", "", false
}

// Done reports whether the terminal stage has completed, the handoff point to
// the business workflow.
func (i *Item) Done() bool {
	return i.State(pipelineOrder[len(pipelineOrder)-1]).Status == StatusCompleted
}

// Failed reports whether any stage is terminally failed.
func (i *Item) Failed() bool {
	for _, stage := range pipelineOrder {
		if i.State(stage).Status == StatusFailed {
			return true
		}
	}
	return false
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Claimed   int
	Failed    int
	Completed int
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
