// Package common defines shared sentinel errors used across the client
// layers of Inkpad. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks a local persistence fault. The lifecycle service is
	// the only layer that surfaces it to callers.
	ErrStorage = errors.New("storage fault")

	// Remote adapter errors. Never surfaced to callers; the engine converts
	// them into queue retention.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrRemoteRejected    = errors.New("remote store rejected operation")
)
