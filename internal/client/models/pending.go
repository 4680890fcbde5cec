package models

import "fmt"

// OpKind classifies a pending operation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// PendingOp is one not-yet-confirmed mutation queued while the remote store
// was unreachable.
type PendingOp struct {
	// ID is unique per enqueue, derived from the enqueue time and target id.
	ID string

	// Kind is create, update or delete.
	Kind OpKind

	// OwnerID scopes the queue.
	OwnerID string

	// NoteID is the affected entity id.
	NoteID string

	// Snapshot is the full note at enqueue time. Nil for deletes.
	Snapshot *Note

	// EnqueuedAt is the enqueue time in milliseconds since the Unix epoch.
	EnqueuedAt int64
}

// NewPendingOpID derives a queue-entry id from the enqueue time and the
// target note id. Collisions would require two enqueues of the same note in
// the same millisecond, which the single-session write path cannot produce;
// even then the final state is unaffected because replay is idempotent.
func NewPendingOpID(noteID string, enqueuedAt int64) string {
	return fmt.Sprintf("%d-%s", enqueuedAt, noteID)
}
