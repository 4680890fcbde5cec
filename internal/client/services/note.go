// Package services exposes the note lifecycle manager: the one coherent API
// through which callers create, update and delete notes. It keeps the local
// store durable-first, pushes to the remote store opportunistically, and
// falls back to the pending queue whenever the remote is offline or fails.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/client/remote"
	"github.com/akozadaev/inkpad/internal/client/repositories/notes"
	"github.com/akozadaev/inkpad/internal/client/repositories/pending"
	"github.com/akozadaev/inkpad/internal/client/sync"
	"github.com/akozadaev/inkpad/internal/common"
	"github.com/akozadaev/inkpad/internal/logging"
	"github.com/google/uuid"
)

// NoteService is the entity lifecycle manager.
//
// Every mutation is written to the local durable store before the function
// returns, regardless of network state. Remote pushes are best-effort: a
// failure degrades to an enqueued operation and is never surfaced to the
// caller. Only local storage faults come back as errors, wrapping
// common.ErrStorage.
type NoteService interface {
	// Create makes a new empty note owned by the configured owner.
	Create(ctx context.Context) (*models.Note, error)

	// Update persists the caller-supplied note, refreshing UpdatedAt.
	Update(ctx context.Context, note *models.Note) (*models.Note, error)

	// Delete removes a note. On a local storage fault the previous value is
	// returned alongside the error so an optimistic caller can restore its
	// listing.
	Delete(ctx context.Context, id string) (*models.Note, error)

	// List returns all local notes.
	List(ctx context.Context) ([]*models.Note, error)

	// Get returns one note or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Note, error)

	// PendingCount reports the depth of the pending-operation queue.
	PendingCount(ctx context.Context) (int, error)
}

// Online reports whether the remote store is currently reachable; satisfied
// by connectivity.Monitor.
type Online interface {
	Online() bool
}

type noteService struct {
	ownerID string
	notes   notes.Repository
	queue   pending.Queue
	remote  remote.Store
	engine  *sync.Engine
	online  Online
	log     logging.Logger
	now     func() int64
}

func NewNoteService(
	ownerID string,
	noteRepo notes.Repository,
	queue pending.Queue,
	store remote.Store,
	engine *sync.Engine,
	online Online,
	log logging.Logger,
) NoteService {
	return &noteService{
		ownerID: ownerID,
		notes:   noteRepo,
		queue:   queue,
		remote:  store,
		engine:  engine,
		online:  online,
		log:     log,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

func (s *noteService) Create(ctx context.Context) (*models.Note, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating note id: %w", err)
	}

	now := s.now()
	n := &models.Note{
		ID:        id.String(),
		OwnerID:   s.ownerID,
		Payload:   []byte("{}"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notes.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.pushOrEnqueue(ctx, models.OpCreate, n)
	return n, nil
}

func (s *noteService) Update(ctx context.Context, note *models.Note) (*models.Note, error) {
	if note == nil || note.ID == "" {
		return nil, errors.New("update requires a note with an id")
	}

	n := note.Clone()
	n.OwnerID = s.ownerID
	n.UpdatedAt = s.now()

	// protect the note from remote overwrite for the duration of the edit;
	// the suppression lifts a short delay after the save lands
	s.engine.MarkEditing(n.ID)
	defer s.engine.DoneEditing(n.ID)

	if err := s.notes.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.pushOrEnqueue(ctx, models.OpUpdate, n)
	return n, nil
}

func (s *noteService) Delete(ctx context.Context, id string) (*models.Note, error) {
	previous, err := s.notes.GetByID(ctx, s.ownerID, id)
	if errors.Is(err, common.ErrNotFound) {
		// deleting what is not there is not an error
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if err := s.notes.Delete(ctx, s.ownerID, id); err != nil {
		// hand the previous value back so an optimistic listing can roll back
		return previous, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.pushDeleteOrEnqueue(ctx, id)
	return previous, nil
}

func (s *noteService) List(ctx context.Context) ([]*models.Note, error) {
	result, err := s.notes.GetAll(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (s *noteService) Get(ctx context.Context, id string) (*models.Note, error) {
	n, err := s.notes.GetByID(ctx, s.ownerID, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return n, nil
}

func (s *noteService) PendingCount(ctx context.Context) (int, error) {
	return s.queue.Count(ctx, s.ownerID)
}

// pushOrEnqueue attempts an immediate remote push when online and falls back
// to the pending queue on any failure. Queue faults on the fallback path are
// the one case with nowhere left to degrade to; they are logged loudly.
func (s *noteService) pushOrEnqueue(ctx context.Context, kind models.OpKind, n *models.Note) {
	if s.online.Online() {
		if err := s.remote.Push(ctx, n.Clone()); err == nil {
			return
		} else {
			s.log.Warn(ctx, "remote push failed, queueing", "note", n.ID, "error", err)
		}
	}
	s.enqueue(ctx, kind, n.ID, n)
}

func (s *noteService) pushDeleteOrEnqueue(ctx context.Context, id string) {
	if s.online.Online() {
		if err := s.remote.Remove(ctx, s.ownerID, id); err == nil {
			return
		} else {
			s.log.Warn(ctx, "remote delete failed, queueing", "note", id, "error", err)
		}
	}
	s.enqueue(ctx, models.OpDelete, id, nil)
}

func (s *noteService) enqueue(ctx context.Context, kind models.OpKind, noteID string, snapshot *models.Note) {
	at := s.now()
	op := &models.PendingOp{
		ID:         models.NewPendingOpID(noteID, at),
		Kind:       kind,
		OwnerID:    s.ownerID,
		NoteID:     noteID,
		Snapshot:   snapshot,
		EnqueuedAt: at,
	}
	if err := s.queue.Enqueue(ctx, op); err != nil {
		s.log.Error(ctx, "failed to enqueue pending operation", "note", noteID, "kind", kind, "error", err)
	}
}
