// Package remote defines the contract to the authoritative backend and an
// HTTP + websocket implementation of it. The backend itself is an external
// collaborator: the sync core only needs push/pull/remove, a change
// subscription and a reachability probe.
package remote

import (
	"context"

	"github.com/akozadaev/inkpad/internal/client/models"
)

// SnapshotFunc receives the full remote note set for an owner whenever the
// remote set changes. Implementations of Store call it from the subscription
// goroutine; receivers must be safe to call at any time, including while a
// sync is in flight.
type SnapshotFunc func(ownerID string, notes []*models.Note)

// Store is the remote store adapter.
//
// Push and Remove are idempotent: re-applying an operation that already took
// effect leaves the remote state unchanged. The backend is also expected to
// resolve concurrent writers last-writer-wins on the note's updated
// timestamp: a Push carrying an older timestamp than the stored note must
// not overwrite it. Queue replay after an offline period re-sends stale
// snapshots, and a backend that blindly upserts them would roll back newer
// writes from other devices.
//
// Every call must observe the context deadline; implementations additionally
// bound each call with their own timeout so nothing blocks indefinitely.
type Store interface {
	// Push upserts the full note remotely.
	Push(ctx context.Context, note *models.Note) error

	// Pull returns the full remote snapshot for the owner.
	Pull(ctx context.Context, ownerID string) ([]*models.Note, error)

	// Remove deletes the note remotely. Removing an absent id is not an error.
	Remove(ctx context.Context, ownerID, id string) error

	// Subscribe delivers full remote snapshots for the owner to onChange
	// until the returned unsubscribe function is called or ctx is done.
	Subscribe(ctx context.Context, ownerID string, onChange SnapshotFunc) (func(), error)

	// Ping probes reachability of the remote store.
	Ping(ctx context.Context) error

	// Close releases connections held by the adapter. Active subscriptions
	// are ended by their unsubscribe functions, not by Close.
	Close() error
}

// Probe is the reachability surface the connectivity monitor needs.
// Store satisfies it.
type Probe interface {
	Ping(ctx context.Context) error
}
