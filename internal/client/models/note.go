// Package models defines client-side data models used by the Inkpad sync core.
package models

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Note is the unit of synchronization, persisted locally and reconciled with
// the remote store. The sync core never interprets Payload beyond
// byte-for-byte equality; Aux rides along unmodified on every read, write and
// merge (sharing metadata, history snapshots, and whatever else the
// application attaches).
type Note struct {
	// ID is a globally unique identifier, assigned once at creation.
	// UUIDv7 values are time-ordered, so the id doubles as a
	// creation-order tiebreak.
	ID string `json:"id"`

	// OwnerID scopes every store and queue operation.
	OwnerID string `json:"owner_id"`

	// Payload is the application-defined attribute bag (title, content, ...).
	Payload []byte `json:"payload"`

	// CreatedAt is set once at creation, in integer milliseconds since the
	// Unix epoch. Immutable.
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is bumped on every local or remote mutation and is the sole
	// signal used for conflict resolution. Zero means "never updated"; use
	// EffectiveUpdatedAt for comparisons.
	UpdatedAt int64 `json:"updated_at"`

	// Aux carries opaque auxiliary attributes.
	Aux map[string]json.RawMessage `json:"aux,omitempty"`
}

// EffectiveUpdatedAt returns UpdatedAt, falling back to CreatedAt when the
// update timestamp is absent.
func (n *Note) EffectiveUpdatedAt() int64 {
	if n.UpdatedAt != 0 {
		return n.UpdatedAt
	}
	return n.CreatedAt
}

// Equal reports whether two notes are byte-for-byte identical in every field
// the sync core carries, including the opaque payload and aux bag.
func (n *Note) Equal(o *Note) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.ID != o.ID || n.OwnerID != o.OwnerID ||
		n.CreatedAt != o.CreatedAt || n.UpdatedAt != o.UpdatedAt {
		return false
	}
	if !bytes.Equal(n.Payload, o.Payload) {
		return false
	}
	return maps.EqualFunc(n.Aux, o.Aux, func(a, b json.RawMessage) bool {
		return bytes.Equal(a, b)
	})
}

// Clone returns a deep copy. Repositories and the engine hand out clones so
// callers can never alias stored state.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Payload = bytes.Clone(n.Payload)
	if n.Aux != nil {
		c.Aux = make(map[string]json.RawMessage, len(n.Aux))
		for k, v := range n.Aux {
			c.Aux[k] = bytes.Clone(v)
		}
	}
	return &c
}
