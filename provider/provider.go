package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// FileInfo is the minimal object metadata shared by all storage backends.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Provider is a storage backend reached through discrete get/put calls.
// The orchestration core only ever talks to object storage through this
// interface; the SDK underneath is an opaque collaborator.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the immediate contents of the given prefix.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// OpenRead opens an object for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens an object for streaming writes, applying metadata
	// where the backend supports it.
	OpenWrite(ctx context.Context, path string, metadata FileInfo) (io.WriteCloser, error)
}

// Resolver maps a locator string to the provider that serves it plus the
// path within that provider.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (Provider, string, error)
}

// CachingResolver resolves s3://bucket/key locators to per-bucket
// S3Providers, creating each bucket's client once, and anything else to a
// local filesystem provider. Safe for concurrent use.
type CachingResolver struct {
	mu      sync.Mutex
	buckets map[string]*S3Provider
	local   *LocalProvider
}

// NewCachingResolver creates an empty resolver.
func NewCachingResolver() *CachingResolver {
	return &CachingResolver{
		buckets: make(map[string]*S3Provider),
		local:   NewLocalProvider(""),
	}
}

// Resolve returns the provider serving the locator and the in-provider path.
func (r *CachingResolver) Resolve(ctx context.Context, locator string) (Provider, string, error) {
	if !strings.HasPrefix(locator, "s3://") {
		// Plain paths are served by the local filesystem provider. This is
		// how local test endpoints are reached.
		return r.local, locator, nil
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(locator, "s3://"), "/")
	if bucket == "" {
		return nil, "", fmt.Errorf("locator %q has no bucket", locator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.buckets[bucket]; ok {
		return p, key, nil
	}
	p, err := NewS3Provider(ctx, bucket, "")
	if err != nil {
		return nil, "", fmt.Errorf("failed to build client for bucket %q: %w", bucket, err)
	}
	r.buckets[bucket] = p
	return p, key, nil
}
