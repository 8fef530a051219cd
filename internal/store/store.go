package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// StorageError wraps a failed storage operation with its context.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Options configures the part store.
type Options struct {
	// BucketURL is a gocloud bucket URL (s3://, gs://, file://, mem://).
	// Empty means no storage is configured; the store opens an in-memory
	// stand-in bucket instead.
	BucketURL string

	// PublicBaseURL, when set, is joined with the object key to produce the
	// storage URL reported on outbound messages. When empty the store falls
	// back to a presigned URL, and failing that to bucketURL/key.
	PublicBaseURL string

	// PresignTTL is the validity window for presigned URLs.
	// Default: 1h
	PresignTTL time.Duration
}

// Store uploads parts to a bucket and hands out their addresses.
type Store struct {
	bucket    *blob.Bucket
	bucketURL string
	opts      Options
	standin   bool
}

// Open opens the configured bucket, or an in-memory stand-in when no bucket
// URL is set.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = time.Hour
	}

	bucketURL := opts.BucketURL
	standin := false
	if bucketURL == "" {
		bucketURL = "mem://"
		standin = true
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, &StorageError{Op: "open", Key: bucketURL, Err: err}
	}

	return &Store{
		bucket:    bucket,
		bucketURL: bucketURL,
		opts:      opts,
		standin:   standin,
	}, nil
}

// Close releases the bucket connection.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Standin reports whether the store is running against the in-memory
// stand-in bucket rather than configured storage.
func (s *Store) Standin() bool {
	return s.standin
}

// PartKey returns the deterministic object key for one part of an item.
// Parts are numbered from 1 on the wire, matching the part file names.
func PartKey(itemID string, partIndex int) string {
	return fmt.Sprintf("pdf-parts/%s/part_%d.pdf", itemID, partIndex+1)
}

// Upload stores the file at localPath under key and returns its address.
// Uploading to an existing key overwrites it.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", &StorageError{Op: "upload", Key: key, Err: err}
	}
	defer f.Close()

	opts := &blob.WriterOptions{ContentType: "application/pdf"}
	if err := s.bucket.Upload(ctx, key, f, opts); err != nil {
		return "", &StorageError{Op: "upload", Key: key, Err: err}
	}

	return s.objectURL(ctx, key), nil
}

// Presign returns a time-limited URL for key. Drivers that cannot sign
// (mem://, file://) fall back to the object's plain address.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.opts.PresignTTL
	}

	signed, err := s.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{Expiry: ttl})
	if err != nil {
		if gcerrors.Code(err) == gcerrors.Unimplemented {
			return s.plainURL(key), nil
		}
		return "", &StorageError{Op: "presign", Key: key, Err: err}
	}
	return signed, nil
}

// Delete removes key from the bucket. Deleting a missing key is not an
// error; the worker may retry cleanup.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Exists reports whether key is present in the bucket.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}
	return ok, nil
}

// HealthCheck reports whether the bucket is reachable.
func (s *Store) HealthCheck(ctx context.Context) bool {
	ok, err := s.bucket.IsAccessible(ctx)
	return err == nil && ok
}

// objectURL picks the best available address for key: public base URL,
// then presigned, then the plain bucket/key join.
func (s *Store) objectURL(ctx context.Context, key string) string {
	if s.opts.PublicBaseURL != "" {
		return joinURL(s.opts.PublicBaseURL, key)
	}
	if signed, err := s.Presign(ctx, key, s.opts.PresignTTL); err == nil {
		return signed
	}
	return s.plainURL(key)
}

func (s *Store) plainURL(key string) string {
	return joinURL(s.bucketURL, key)
}

func joinURL(base, key string) string {
	base = strings.TrimSuffix(base, "/")
	escaped := (&url.URL{Path: key}).EscapedPath()
	return base + "/" + strings.TrimPrefix(escaped, "/")
}
