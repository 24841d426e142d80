// Package config loads, validates, and normalizes pitchpipe configuration.
//
// Configuration comes from a TOML file (default ~/.config/pitchpipe/config.toml
// or ./pitchpipe.toml), with a fixed set of environment overrides applied on
// top for deployment tuning. Defaults live in defaults.go; validation keeps
// the size tiers, claim TTLs, and concurrency settings internally consistent.
package config
