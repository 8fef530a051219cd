// Package store uploads produced parts to object storage.
//
// The store is backed by a gocloud.dev bucket, so the same code serves S3,
// GCS, local directories (file://) and in-memory buckets (mem://). When no
// bucket URL is configured the store degrades to an in-memory stand-in so
// the worker can run without storage credentials; Standin reports that mode
// so the caller can log it at startup.
//
// Part keys are deterministic per item and part index, which makes
// re-uploads on retry idempotent overwrites rather than duplicate objects.
package store
