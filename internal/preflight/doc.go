// Package preflight provides readiness checks for the external services
// and filesystem paths the pipeline depends on.
//
// The CLI status command uses these to display service health without
// starting the daemon; each remote check uses a short timeout and a single
// attempt so a dead service cannot hang the status output.
package preflight
