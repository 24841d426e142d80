package stage

import (
	"context"

	"pitchpipe/internal/queue"
)

// Handler describes the contract the orchestrator needs from each stage.
// Prepare runs before the item is counted against the stage throttle and
// should be cheap; Execute does the work. Both receive the claimed item and
// persist business fields through the store between calls.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
