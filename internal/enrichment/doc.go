// Package enrichment implements the first claimable pipeline stage: pulling
// the show-level profile for a discovered media record and persisting it on
// the work item for the stages downstream.
package enrichment
