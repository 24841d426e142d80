// Package podscan wraps the podcast discovery/enrichment API. The enrichment
// stage pulls show-level profile data for a media record; the raw response is
// preserved alongside the parsed fields so downstream stages can mine it.
package podscan
