// Package pending implements the durable queue of mutations that have not
// yet been confirmed by the remote store.
//
// The queue is append-only between syncs: Enqueue does not deduplicate or
// collapse earlier operations on the same note. Replay against the remote
// store is idempotent, so keeping every entry verbatim is safe and keeps the
// queue trivially auditable.
package pending

import (
	"context"

	"github.com/akozadaev/inkpad/internal/client/models"
)

// Queue is the pending-operation queue contract.
type Queue interface {
	// Enqueue appends an operation. No compaction takes place beyond
	// replacing an entry with an identical id (same note, same
	// millisecond), where only the final state can matter.
	Enqueue(ctx context.Context, op *models.PendingOp) error

	// Drain returns all queued operations for the owner, oldest first,
	// without removing them. The engine clears the queue separately, and
	// only after every returned operation has been applied remotely.
	Drain(ctx context.Context, ownerID string) ([]*models.PendingOp, error)

	// Clear empties the owner's queue.
	Clear(ctx context.Context, ownerID string) error

	// Count reports the owner's queue depth.
	Count(ctx context.Context, ownerID string) (int, error)
}
