// Package metadata stores small client-side bookkeeping values, such as the
// last successful sync time per owner. Nothing in the merge algorithm depends
// on these values; they exist for diagnostics and the status surface.
package metadata

import "context"

// Repository is a durable key/value store for sync bookkeeping.
type Repository interface {
	// Get returns the value for key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set upserts key to value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// LastSyncKey names the per-owner record of the last fully successful sync,
// stored as decimal milliseconds since the Unix epoch.
func LastSyncKey(ownerID string) string {
	return "last_sync:" + ownerID
}
