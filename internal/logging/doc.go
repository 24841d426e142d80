// Package logging centralizes slog construction and the attribute vocabulary
// shared across the pipeline: standardized field names, context-derived
// attrs, and Attr shims so call sites stay terse.
package logging
