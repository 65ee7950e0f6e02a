// Package storage provides the durable-store clients the persistence step
// writes through: an object store for post content and a key-value table for
// idempotency records.
package storage

import "context"

// ObjectStore is the narrow object-store boundary the pipeline needs:
// existence probe and write. Callers own fail-open policy; implementations
// report a missing object as (false, nil) and infrastructure failures as
// errors.
type ObjectStore interface {
	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Put writes body to key, replacing any existing object. Metadata is
	// attached verbatim when the backend supports it.
	Put(ctx context.Context, key string, body []byte, metadata map[string]string) error
}
