// Package idempotency tracks completed durable writes so the persistence step
// is safe to retry without duplication.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/storage"
)

// DefaultTTL is how long completion records live before advisory expiry.
const DefaultTTL = 24 * time.Hour

// GenerateKey derives the deterministic idempotency key for one logical
// write: the hex sha256 of "operation:identifier". No salt and no time
// component, so retries and process restarts reproduce it exactly.
func GenerateKey(operation, identifier string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", operation, identifier)))
	return hex.EncodeToString(sum[:])
}

// Coordinator records and queries operation completion against a durable
// key-value table.
//
// Check-then-write is deliberately not atomic: two concurrent runs for the
// same key can both pass Check before either marks completion. The duplicate
// write this admits is idempotent by content and independently guarded by the
// object-store existence check in the persistence step, so no conditional
// write is used.
type Coordinator struct {
	store  storage.KVStore
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewCoordinator creates a coordinator over the given table. A nil store
// disables tracking: every Check reads as not-completed and MarkComplete is a
// logged no-op, keeping the pipeline functional without the backend.
func NewCoordinator(store storage.KVStore, ttl time.Duration, log logger.Logger) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		store:  store,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Check reports whether the keyed operation already completed. Fails open:
// any store error reads as "not completed" and is logged, so a broken
// idempotency backend can delay deduplication but never block a write.
func (c *Coordinator) Check(ctx context.Context, key string) bool {
	if c.store == nil {
		c.logger.Warn("idempotency store not configured, skipping check")
		return false
	}

	_, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("idempotency check failed, allowing operation to proceed",
			logger.String("key", shortKey(key)),
			logger.Error(err),
		)
		return false
	}

	if found {
		c.logger.Info("operation already completed",
			logger.String("key", shortKey(key)),
		)
	}
	return found
}

// MarkComplete records completion of the keyed operation with a TTL'd record.
// Fails open: the write that triggered the mark already succeeded, so a store
// error here is logged and swallowed rather than turning a success into a
// reported failure. The cost is a possible duplicate write on retry.
func (c *Coordinator) MarkComplete(ctx context.Context, key string) {
	if c.store == nil {
		c.logger.Warn("idempotency store not configured, skipping mark")
		return
	}

	now := c.now().UTC()
	record := models.IdempotencyRecord{
		Key:         key,
		TTL:         now.Add(c.ttl).Unix(),
		CompletedAt: now.Format(time.RFC3339),
	}

	value, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn("failed to encode idempotency record",
			logger.String("key", shortKey(key)),
			logger.Error(err),
		)
		return
	}

	if err := c.store.Put(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("failed to mark operation complete",
			logger.String("key", shortKey(key)),
			logger.Error(err),
		)
		return
	}

	c.logger.Info("operation marked complete",
		logger.String("key", shortKey(key)),
		logger.Duration("ttl", c.ttl),
	)
}

// shortKey truncates a key for log lines.
func shortKey(key string) string {
	if len(key) <= 16 {
		return key
	}
	return key[:16] + "..."
}
