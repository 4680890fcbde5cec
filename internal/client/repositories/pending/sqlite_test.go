package pending

import (
	"context"
	"database/sql"
	"testing"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_ops (
  id          TEXT PRIMARY KEY,
  owner_id    TEXT NOT NULL,
  kind        TEXT NOT NULL,
  note_id     TEXT NOT NULL,
  snapshot    BLOB,
  enqueued_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func op(owner, noteID string, kind models.OpKind, at int64, snap *models.Note) *models.PendingOp {
	return &models.PendingOp{
		ID:         models.NewPendingOpID(noteID, at),
		Kind:       kind,
		OwnerID:    owner,
		NoteID:     noteID,
		Snapshot:   snap,
		EnqueuedAt: at,
	}
}

func TestEnqueueDrain_OldestFirst(t *testing.T) {
	db := setupDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()

	n := &models.Note{ID: "n1", OwnerID: "u1", Payload: []byte("x"), CreatedAt: 1}

	require.NoError(t, q.Enqueue(ctx, op("u1", "n2", models.OpDelete, 300, nil)))
	require.NoError(t, q.Enqueue(ctx, op("u1", "n1", models.OpCreate, 100, n)))
	require.NoError(t, q.Enqueue(ctx, op("u1", "n1", models.OpUpdate, 200, n)))

	ops, err := q.Drain(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, models.OpCreate, ops[0].Kind)
	assert.Equal(t, models.OpUpdate, ops[1].Kind)
	assert.Equal(t, models.OpDelete, ops[2].Kind)

	// delete ops carry no snapshot
	assert.Nil(t, ops[2].Snapshot)
	require.NotNil(t, ops[0].Snapshot)
	assert.True(t, n.Equal(ops[0].Snapshot))
}

func TestDrain_DoesNotRemove(t *testing.T) {
	db := setupDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, op("u1", "n1", models.OpDelete, 100, nil)))

	_, err := q.Drain(ctx, "u1")
	require.NoError(t, err)

	count, err := q.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClear_ScopedByOwner(t *testing.T) {
	db := setupDB(t)
	q := NewSQLiteQueue(db)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, op("u1", "n1", models.OpDelete, 100, nil)))
	require.NoError(t, q.Enqueue(ctx, op("u2", "n2", models.OpDelete, 100, nil)))

	require.NoError(t, q.Clear(ctx, "u1"))

	count, err := q.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = q.Count(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
