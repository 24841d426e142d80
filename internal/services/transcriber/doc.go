// Package transcriber wraps the remote speech-to-text service. Audio uploads
// stream from disk through a pipe so a multi-gigabyte episode never sits in
// this process's heap.
package transcriber
