package sync

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/client/remote"
	"github.com/akozadaev/inkpad/internal/client/repositories/metadata"
	"github.com/akozadaev/inkpad/internal/client/repositories/notes"
	"github.com/akozadaev/inkpad/internal/client/repositories/pending"
	"github.com/akozadaev/inkpad/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const owner = "u1"

// fakeRemote is an in-memory remote store with failure injection and call
// recording.
type fakeRemote struct {
	mu         gosync.Mutex
	notes      map[string]*models.Note
	pushErrs   map[string]error
	removeErrs map[string]error
	pullErr    error
	pushes     []string
	removes    []string
	pulls      int

	pullStarted chan struct{}
	pullRelease chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		notes:      make(map[string]*models.Note),
		pushErrs:   make(map[string]error),
		removeErrs: make(map[string]error),
	}
}

// Push applies last-writer-wins the way the backend does: an incoming value
// older than the stored one is accepted (idempotent success) but does not
// overwrite it.
func (f *fakeRemote) Push(ctx context.Context, n *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pushErrs[n.ID]; err != nil {
		return err
	}
	f.pushes = append(f.pushes, n.ID)
	if existing, ok := f.notes[n.ID]; ok && existing.EffectiveUpdatedAt() > n.EffectiveUpdatedAt() {
		return nil
	}
	f.notes[n.ID] = n.Clone()
	return nil
}

func (f *fakeRemote) Pull(ctx context.Context, ownerID string) ([]*models.Note, error) {
	f.mu.Lock()
	started, release := f.pullStarted, f.pullRelease
	f.mu.Unlock()
	if started != nil {
		close(started)
		<-release
		f.mu.Lock()
		f.pullStarted, f.pullRelease = nil, nil
		f.mu.Unlock()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	result := make([]*models.Note, 0, len(f.notes))
	for _, n := range f.notes {
		result = append(result, n.Clone())
	}
	return result, nil
}

func (f *fakeRemote) Remove(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErrs[id]; err != nil {
		return err
	}
	f.removes = append(f.removes, id)
	delete(f.notes, id)
	return nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, ownerID string, onChange remote.SnapshotFunc) (func(), error) {
	return func() {}, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

func (f *fakeRemote) Close() error { return nil }

func (f *fakeRemote) pushCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pushes {
		if p == id {
			n++
		}
	}
	return n
}

type fixture struct {
	engine *Engine
	notes  notes.Repository
	queue  pending.Queue
	remote *fakeRemote
	sup    *Suppressor
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE notes (
  owner_id TEXT NOT NULL, id TEXT NOT NULL, payload BLOB NOT NULL,
  created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL DEFAULT 0, aux TEXT,
  PRIMARY KEY (owner_id, id)
)`,
		`CREATE TABLE pending_ops (
  id TEXT PRIMARY KEY, owner_id TEXT NOT NULL, kind TEXT NOT NULL,
  note_id TEXT NOT NULL, snapshot BLOB, enqueued_at INTEGER NOT NULL
)`,
		`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB)`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}

	fr := newFakeRemote()
	sup := NewSuppressor(30 * time.Millisecond)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	noteRepo := notes.NewSQLiteRepository(db)
	queue := pending.NewSQLiteQueue(db)
	meta := metadata.NewSQLiteRepository(db)

	return &fixture{
		engine: NewEngine(noteRepo, queue, meta, fr, sup, log),
		notes:  noteRepo,
		queue:  queue,
		remote: fr,
		sup:    sup,
	}
}

func enqueue(t *testing.T, fx *fixture, kind models.OpKind, n *models.Note, at int64) {
	t.Helper()
	op := &models.PendingOp{
		ID:         models.NewPendingOpID(n.ID, at),
		Kind:       kind,
		OwnerID:    owner,
		NoteID:     n.ID,
		EnqueuedAt: at,
	}
	if kind != models.OpDelete {
		op.Snapshot = n
	}
	require.NoError(t, fx.queue.Enqueue(context.Background(), op))
}

func TestSyncNow_OfflineRoundTrip(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	a := note("a", 100, 100, "created offline")
	require.NoError(t, fx.notes.Put(ctx, a))
	enqueue(t, fx, models.OpCreate, a, 100)

	count, err := fx.queue.Count(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	assert.Equal(t, 1, fx.remote.pushCount("a"))
	count, err = fx.queue.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := fx.notes.GetByID(ctx, owner, "a")
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
}

func TestSyncNow_PartialFailureRetainsQueue(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	n1 := note("n1", 1, 10, "one")
	n2 := note("n2", 1, 20, "two")
	require.NoError(t, fx.notes.Put(ctx, n1))
	require.NoError(t, fx.notes.Put(ctx, n2))

	enqueue(t, fx, models.OpCreate, n1, 10)
	enqueue(t, fx, models.OpCreate, n2, 20)
	enqueue(t, fx, models.OpDelete, note("n3", 1, 30, ""), 30)

	fx.remote.pushErrs["n2"] = fmt.Errorf("transient")

	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	// the failed op keeps the whole queue; later ops were still attempted
	count, err := fx.queue.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Contains(t, fx.remote.removes, "n3")

	// retry after the fault clears: replay is idempotent, queue drains
	delete(fx.remote.pushErrs, "n2")
	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	count, err = fx.queue.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSyncNow_ConcurrentDeviceConvergence(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	// this device created e at t=100 and still has an unpushed edit queued
	local := note("e", 100, 100, "device A")
	require.NoError(t, fx.notes.Put(ctx, local))
	enqueue(t, fx, models.OpUpdate, local, 100)

	// another device edited e at t=200
	fx.remote.notes["e"] = note("e", 100, 200, "device B")

	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	got, err := fx.notes.GetByID(ctx, owner, "e")
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.UpdatedAt)
	assert.Equal(t, []byte("device B"), got.Payload)
}

func TestSyncNow_LocalWinPushedBack(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	local := note("x", 1, 300, "newer local")
	require.NoError(t, fx.notes.Put(ctx, local))
	fx.remote.notes["x"] = note("x", 1, 200, "stale remote")

	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	got, err := fx.notes.GetByID(ctx, owner, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("newer local"), got.Payload)

	fx.remote.mu.Lock()
	remoteNow := fx.remote.notes["x"]
	fx.remote.mu.Unlock()
	assert.Equal(t, []byte("newer local"), remoteNow.Payload)
}

func TestSyncNow_CoalescesConcurrentCalls(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	fx.remote.pullStarted = started
	fx.remote.pullRelease = release

	first := make(chan error, 1)
	go func() { first <- fx.engine.SyncNow(ctx, owner) }()
	<-started

	// second call arrives mid-sync and must piggyback, not re-drain
	second := make(chan error, 1)
	go func() { second <- fx.engine.SyncNow(ctx, owner) }()

	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)

	fx.remote.mu.Lock()
	pulls := fx.remote.pulls
	fx.remote.mu.Unlock()
	assert.Equal(t, 1, pulls)
}

func TestSyncNow_PullFailureDoesNotLoseLocalState(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	a := note("a", 1, 10, "local")
	require.NoError(t, fx.notes.Put(ctx, a))
	enqueue(t, fx, models.OpCreate, a, 10)
	fx.remote.pullErr = fmt.Errorf("network down")

	// remote faults are absorbed, not surfaced
	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	// the drained ops were applied, so the queue still empties
	count, err := fx.queue.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	got, err := fx.notes.GetByID(ctx, owner, "a")
	require.NoError(t, err)
	assert.True(t, a.Equal(got))
}

func TestSyncNow_RecordsLastSync(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	before, err := fx.engine.LastSync(ctx, owner)
	require.NoError(t, err)
	assert.True(t, before.IsZero())

	require.NoError(t, fx.engine.SyncNow(ctx, owner))

	after, err := fx.engine.LastSync(ctx, owner)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), after, 5*time.Second)
}

func TestOnRemoteChange_SuppressionWinsAbsolutely(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	local := note("x", 1, 100, "being typed")
	require.NoError(t, fx.notes.Put(ctx, local))

	fx.engine.MarkEditing("x")
	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{note("x", 1, 9999, "remote edit")})

	got, err := fx.notes.GetByID(ctx, owner, "x")
	require.NoError(t, err)
	assert.True(t, local.Equal(got), "suppressed note must stay byte-for-byte unchanged")

	// once the edit session ends, remote changes apply again
	fx.engine.DoneEditing("x")
	assert.Eventually(t, func() bool { return !fx.engine.Suppressed("x") },
		time.Second, 5*time.Millisecond)

	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{note("x", 1, 9999, "remote edit")})
	got, err = fx.notes.GetByID(ctx, owner, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote edit"), got.Payload)
}

func TestOnRemoteChange_TieGoesRemote(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	require.NoError(t, fx.notes.Put(ctx, note("x", 1, 100, "local")))
	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{note("x", 1, 100, "remote")})

	got, err := fx.notes.GetByID(ctx, owner, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote"), got.Payload)
}

func TestOnRemoteChange_NewerLocalRepushed(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	local := note("x", 1, 300, "newer local")
	require.NoError(t, fx.notes.Put(ctx, local))

	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{note("x", 1, 200, "stale")})

	got, err := fx.notes.GetByID(ctx, owner, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("newer local"), got.Payload)
	assert.Equal(t, 1, fx.remote.pushCount("x"))
}

func TestOnRemoteChange_AdoptsUnknownNotes(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	incoming := note("fresh", 1, 50, "from another device")
	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{incoming})

	got, err := fx.notes.GetByID(ctx, owner, "fresh")
	require.NoError(t, err)
	assert.True(t, incoming.Equal(got))
}

func TestOnRemoteChange_AbsenceIsNotDeletion(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	keep := note("keep", 1, 10, "local only")
	require.NoError(t, fx.notes.Put(ctx, keep))

	// snapshot mentions a different note; "keep" must survive
	fx.engine.OnRemoteChange(ctx, owner, []*models.Note{note("other", 1, 20, "x")})

	got, err := fx.notes.GetByID(ctx, owner, "keep")
	require.NoError(t, err)
	assert.True(t, keep.Equal(got))
}
