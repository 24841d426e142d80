// Package vetting scores how well a podcast fits its campaign. Items below
// the configured minimum score fail here permanently; everything downstream
// only ever sees matches worth pitching.
package vetting
