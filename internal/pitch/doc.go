// Package pitch drafts the outreach angle for a finalized match. This is the
// terminal stage: its completion is the handoff signal to the business layer,
// which owns templating and sending.
package pitch
