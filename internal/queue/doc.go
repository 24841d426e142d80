// Package queue implements the lock ledger: SQLite-backed work items with a
// per-stage claim protocol. Each pipeline stage owns a family of columns on
// the work_items row (status, claim token, attempts, last error, retry
// backoff), and claims are acquired and released through single guarded
// UPDATE statements so concurrent claimants and crashed processes can never
// corrupt each other's state.
package queue
