package pending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/dbx"
)

// SQLiteQueue implements Queue using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteQueue struct {
	db dbx.DBTX
}

// NewSQLiteQueue returns a new SQLiteQueue bound to the given DBTX.
func NewSQLiteQueue(db dbx.DBTX) *SQLiteQueue {
	return &SQLiteQueue{db: db}
}

func (q *SQLiteQueue) Enqueue(ctx context.Context, op *models.PendingOp) error {
	var snapshot []byte
	if op.Snapshot != nil {
		b, err := json.Marshal(op.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		snapshot = b
	}

	// Op ids are derived from (enqueue ms, note id). Two mutations of the
	// same note inside one millisecond collide; the later one replaces the
	// earlier, which is the permitted collapse of consecutive operations on
	// one entity — only the final state matters under last-writer-wins.
	query := `INSERT INTO pending_ops (id, owner_id, kind, note_id, snapshot, enqueued_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET kind = excluded.kind,
				snapshot = excluded.snapshot,
				enqueued_at = excluded.enqueued_at`
	_, err := q.db.ExecContext(ctx, query,
		op.ID, op.OwnerID, string(op.Kind), op.NoteID, snapshot, op.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue operation: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Drain(ctx context.Context, ownerID string) ([]*models.PendingOp, error) {
	query := `SELECT id, owner_id, kind, note_id, snapshot, enqueued_at
			FROM pending_ops WHERE owner_id = ? ORDER BY enqueued_at ASC, id ASC`
	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingOp
	for rows.Next() {
		var op models.PendingOp
		var kind string
		var snapshot []byte
		if err := rows.Scan(&op.ID, &op.OwnerID, &kind, &op.NoteID, &snapshot, &op.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending operation: %w", err)
		}
		op.Kind = models.OpKind(kind)
		if len(snapshot) > 0 {
			var n models.Note
			if err := json.Unmarshal(snapshot, &n); err != nil {
				return nil, fmt.Errorf("failed to decode snapshot: %w", err)
			}
			op.Snapshot = &n
		}
		result = append(result, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (q *SQLiteQueue) Clear(ctx context.Context, ownerID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_ops WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to clear pending operations: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_ops WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return n, nil
}
