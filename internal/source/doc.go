// Package source downloads source documents over HTTP.
//
// This package handles:
//   - Separate connect and read timeouts
//   - Retry with exponential backoff and jitter on transient failures
//   - Immediate failure on non-retryable status codes
//   - Atomic writes to the destination path
//
// Retries here are internal to the client: callers see only the final
// success or failure. The message-level retry policy lives with the worker.
//
// # Usage
//
//	client := source.NewClient(source.DefaultOptions())
//	size, err := client.Download(ctx, url, destPath)
package source
