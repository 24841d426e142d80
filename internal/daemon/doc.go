// Package daemon owns the long-running process lifecycle.
//
// It enforces single-instance execution through a file lock, starts and
// stops the workflow manager, and exposes queue maintenance helpers to the
// CLI. Pipeline logic belongs in the stage packages; the daemon focuses on
// startup, shutdown, and coordination.
package daemon
