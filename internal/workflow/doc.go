// Package workflow advances work items through the pipeline stages.
//
// The Manager runs one scheduler loop per stage. Each cycle claims a batch of
// eligible items through the lock ledger, funnels them through the stage's
// concurrency throttle, executes the registered handler, and releases every
// claim with an outcome derived from the error taxonomy: completed, retry
// with backoff, deferred on local resource exhaustion, or failed once the
// attempt budget is spent. A separate sweep returns claims abandoned by
// crashed processes once their TTL expires.
//
// Executing handlers are never cancelled. The cycle deadline bounds claiming
// and the throttle wait; a body that outlives it finishes on its own and
// releases its claim then, and shutdown waits for every running body.
//
// Add new pipeline stages by extending the queue stage enum and registering a
// handler; this package is the authoritative home for the coordination logic.
package workflow
