// Package llm wraps an OpenAI-compatible chat completion endpoint. The
// description, vetting, and pitch stages share one client; each supplies its
// own prompts and decodes its own JSON payload shape.
package llm
