// Package main hosts the pitchpipe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers queue inspection and maintenance,
// daemon and service status, manual intake, and configuration scaffolding.
// Commands operate on the shared SQLite ledger directly; daemon liveness is
// read from its lock file rather than a control channel.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
