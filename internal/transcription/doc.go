// Package transcription implements the memory-heavy pipeline stage. Each
// execution is admitted through the download lane and the memory gate before
// any bytes move, then fetches the episode audio, applies the size-tier
// policy (direct, compress, or reject), and sends the result to the remote
// transcription service. Staged audio never outlives the execution.
package transcription
