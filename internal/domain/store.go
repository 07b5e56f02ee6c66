package domain

import (
	"context"
	"io"
	"time"
)

// SeenSet is an append-only set of string keys scoped to one chain. It backs
// both SeenPoolSet (pools evaluated at least once) and SentTokenSet (pools or
// tokens already alerted). Once added, a key is never removed for the
// lifetime of the set; implementations with durable backing may bound keys
// with a long TTL instead.
type SeenSet interface {
	// Add inserts the key. Returns true when the key was not present before.
	Add(ctx context.Context, chainID, key string) (bool, error)
	// Contains reports whether the key is present.
	Contains(ctx context.Context, chainID, key string) (bool, error)
}

// PendingDeploymentStore tracks addresses seen in deploy-like transactions,
// keyed by (chain, address), each with a bounded lifetime. A single writer
// (the correlator for that chain) owns all mutations.
type PendingDeploymentStore interface {
	// Put records the address as pending as of now. Re-recording an address
	// refreshes its FirstSeenAt.
	Put(ctx context.Context, dep PendingDeployment) error
	// Get returns the pending entry, or ErrNotFound.
	Get(ctx context.Context, chainID, address string) (PendingDeployment, error)
	// Delete removes the entry if present.
	Delete(ctx context.Context, chainID, address string) error
	// Addresses returns the currently pending addresses for a chain.
	Addresses(ctx context.Context, chainID string) ([]string, error)
	// Expire purges entries older than the TTL relative to now and returns
	// how many were removed.
	Expire(ctx context.Context, chainID string, now time.Time, ttl time.Duration) (int, error)
}

// AuditStore is the append-only observability sink: one row per evaluated
// candidate or lifecycle event. Failures here must never abort correlation.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}

// AuditEntry is one persisted audit row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditReader provides time-ranged read access to audit rows, used by the
// archiver.
type AuditReader interface {
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}

// ListingStore persists emitted listing events.
type ListingStore interface {
	Insert(ctx context.Context, event ListingEvent) error
	ListRecent(ctx context.Context, limit int) ([]ListingEvent, error)
}

// RateLimiter bounds the request rate against an upstream API, keyed by an
// arbitrary string (one key per chain explorer).
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion, used to keep periodic
// jobs (the audit archiver) single-flight across instances.
type LockManager interface {
	// Acquire obtains the lock or returns ErrLockHeld. The returned func
	// releases it and is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
