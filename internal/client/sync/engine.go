// Package sync implements the synchronization engine: it drains the pending
// queue against the remote store, merges local and remote snapshots with
// last-writer-wins semantics, applies the remote change feed, and protects
// notes under active local edit from remote overwrite.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/client/remote"
	"github.com/akozadaev/inkpad/internal/client/repositories/metadata"
	"github.com/akozadaev/inkpad/internal/client/repositories/notes"
	"github.com/akozadaev/inkpad/internal/client/repositories/pending"
	"github.com/akozadaev/inkpad/internal/common"
	"github.com/akozadaev/inkpad/internal/logging"
)

// Engine reconciles the local durable store with the remote store. It is the
// sole writer performing that reconciliation; all other mutation goes
// through the lifecycle service.
type Engine struct {
	notes  notes.Repository
	queue  pending.Queue
	meta   metadata.Repository
	remote remote.Store
	sup    *Suppressor
	log    logging.Logger

	mu     gosync.Mutex
	flight *flight
}

// flight is one in-progress SyncNow. Concurrent callers piggyback on it
// instead of starting a second drain.
type flight struct {
	done chan struct{}
	err  error
}

func NewEngine(
	noteRepo notes.Repository,
	queue pending.Queue,
	meta metadata.Repository,
	store remote.Store,
	sup *Suppressor,
	log logging.Logger,
) *Engine {
	return &Engine{
		notes:  noteRepo,
		queue:  queue,
		meta:   meta,
		remote: store,
		sup:    sup,
		log:    log,
	}
}

// MarkEditing flags a note as under active local edit. Incoming remote state
// for it is discarded until DoneEditing's delay elapses.
func (e *Engine) MarkEditing(id string) { e.sup.MarkEditing(id) }

// DoneEditing schedules the edit suppression on id to lift.
func (e *Engine) DoneEditing(id string) { e.sup.DoneEditing(id) }

// Suppressed reports whether id is currently protected from remote overwrite.
func (e *Engine) Suppressed(id string) bool { return e.sup.Suppressed(id) }

// SyncNow drains the pending queue, reconciles the full local and remote
// snapshots and propagates local wins back out. A call arriving while a sync
// is already in flight does not start a second one; it waits for and returns
// the in-flight result.
//
// Remote faults are absorbed here (logged, queue retained); only local
// storage faults are returned.
func (e *Engine) SyncNow(ctx context.Context, ownerID string) error {
	e.mu.Lock()
	if e.flight != nil {
		f := e.flight
		e.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	e.flight = f
	e.mu.Unlock()

	err := e.syncOnce(ctx, ownerID)

	e.mu.Lock()
	e.flight = nil
	e.mu.Unlock()
	f.err = err
	close(f.done)
	return err
}

func (e *Engine) syncOnce(ctx context.Context, ownerID string) error {
	// (1) replay the pending queue in enqueue order. A failed operation is
	// left queued; later operations are still attempted so one bad entity
	// cannot wedge the rest.
	ops, err := e.queue.Drain(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("draining pending queue: %w", err)
	}

	allApplied := true
	for _, op := range ops {
		if err := e.applyOp(ctx, op); err != nil {
			allApplied = false
			e.log.Warn(ctx, "pending operation retained", "op", op.ID, "kind", op.Kind, "error", err)
		}
	}

	// (2) full remote snapshot
	remoteNotes, pullErr := e.remote.Pull(ctx, ownerID)
	if pullErr != nil {
		e.log.Warn(ctx, "remote pull failed, merge skipped", "owner", ownerID, "error", pullErr)
		if allApplied {
			if err := e.queue.Clear(ctx, ownerID); err != nil {
				return fmt.Errorf("clearing pending queue: %w", err)
			}
		}
		return nil
	}

	// (3) full local snapshot
	localNotes, err := e.notes.GetAll(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("reading local snapshot: %w", err)
	}

	// (4) merge
	merged, localWins := mergeSnapshots(localNotes, remoteNotes, e.sup.Suppressed)

	// (5) write every merged note back locally
	for _, n := range merged {
		if err := e.notes.Put(ctx, n); err != nil {
			return fmt.Errorf("writing merged note %s: %w", n.ID, err)
		}
	}

	// (6) propagate local wins back out
	for _, n := range localWins {
		if err := e.remote.Push(ctx, n.Clone()); err != nil {
			e.log.Warn(ctx, "failed to push local win", "note", n.ID, "error", err)
		}
	}

	// (7) the queue empties only when every drained operation applied
	if allApplied {
		if err := e.queue.Clear(ctx, ownerID); err != nil {
			return fmt.Errorf("clearing pending queue: %w", err)
		}
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		if err := e.meta.Set(ctx, metadata.LastSyncKey(ownerID), []byte(now)); err != nil {
			e.log.Warn(ctx, "failed to record last sync time", "error", err)
		}
	}

	e.log.Info(ctx, "sync finished",
		"owner", ownerID,
		"replayed", len(ops),
		"queue_cleared", allApplied,
		"merged", len(merged),
		"pushed_back", len(localWins),
	)
	return nil
}

func (e *Engine) applyOp(ctx context.Context, op *models.PendingOp) error {
	switch op.Kind {
	case models.OpCreate, models.OpUpdate:
		if op.Snapshot == nil {
			return fmt.Errorf("operation %s has no snapshot", op.ID)
		}
		return e.remote.Push(ctx, op.Snapshot)
	case models.OpDelete:
		return e.remote.Remove(ctx, op.OwnerID, op.NoteID)
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// OnRemoteChange applies one remote snapshot delivered by the change feed.
//
// Suppressed notes keep their local value untouched, not even refreshed in
// the store. Otherwise the usual timestamp rule applies: a remote value at
// least as new as the local one wins and is written down; a strictly newer
// local value is pushed back so the remote catches up. Notes absent from the
// snapshot are never deleted here — deletion is always an explicit
// operation, never inferred from a set difference.
func (e *Engine) OnRemoteChange(ctx context.Context, ownerID string, remoteNotes []*models.Note) {
	for _, rn := range remoteNotes {
		if rn == nil || rn.ID == "" {
			continue
		}
		if e.sup.Suppressed(rn.ID) {
			e.log.Debug(ctx, "remote change suppressed", "note", rn.ID)
			continue
		}

		local, err := e.notes.GetByID(ctx, ownerID, rn.ID)
		switch {
		case err == nil:
			if rn.EffectiveUpdatedAt() >= local.EffectiveUpdatedAt() {
				if err := e.notes.Put(ctx, rn); err != nil {
					e.log.Error(ctx, "failed to store remote change", "note", rn.ID, "error", err)
				}
			} else if err := e.remote.Push(ctx, local); err != nil {
				e.log.Warn(ctx, "failed to push newer local value", "note", rn.ID, "error", err)
			}
		case errors.Is(err, common.ErrNotFound):
			if err := e.notes.Put(ctx, rn); err != nil {
				e.log.Error(ctx, "failed to store remote note", "note", rn.ID, "error", err)
			}
		default:
			e.log.Error(ctx, "failed to read local note", "note", rn.ID, "error", err)
		}
	}
}

// LastSync returns the recorded time of the last fully successful sync, or
// the zero time when none is recorded.
func (e *Engine) LastSync(ctx context.Context, ownerID string) (time.Time, error) {
	raw, err := e.meta.Get(ctx, metadata.LastSyncKey(ownerID))
	if err != nil || len(raw) == 0 {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt last sync record: %w", err)
	}
	return time.UnixMilli(ms), nil
}
