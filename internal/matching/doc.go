// Package matching folds the enrichment profile and the vetting verdict into
// the final match record. Purely local; no external calls.
package matching
