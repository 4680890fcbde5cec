package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akozadaev/inkpad/internal/client/models"
	"github.com/akozadaev/inkpad/internal/common"
	"github.com/akozadaev/inkpad/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, note *models.Note) error {
	aux, err := encodeAux(note.Aux)
	if err != nil {
		return fmt.Errorf("failed to encode aux: %w", err)
	}

	query := `INSERT INTO notes (owner_id, id, payload, created_at, updated_at, aux)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner_id, id) DO UPDATE SET payload = excluded.payload,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				aux = excluded.aux
	`
	_, err = r.db.ExecContext(ctx, query,
		note.OwnerID, note.ID, note.Payload, note.CreatedAt, note.UpdatedAt, aux)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context, ownerID string) ([]*models.Note, error) {
	query := `SELECT owner_id, id, payload, created_at, updated_at, aux FROM notes WHERE owner_id = ?`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		item, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Note, error) {
	query := `SELECT owner_id, id, payload, created_at, updated_at, aux FROM notes WHERE owner_id = ? AND id = ?`

	var n models.Note
	var aux sql.NullString
	err := r.db.QueryRowContext(ctx, query, ownerID, id).
		Scan(&n.OwnerID, &n.ID, &n.Payload, &n.CreatedAt, &n.UpdatedAt, &aux)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select note: %w", err)
	}
	if n.Aux, err = decodeAux(aux); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(rows rowScanner) (*models.Note, error) {
	var n models.Note
	var aux sql.NullString
	if err := rows.Scan(&n.OwnerID, &n.ID, &n.Payload, &n.CreatedAt, &n.UpdatedAt, &aux); err != nil {
		return nil, fmt.Errorf("failed to scan note row: %w", err)
	}
	var err error
	if n.Aux, err = decodeAux(aux); err != nil {
		return nil, err
	}
	return &n, nil
}

func encodeAux(aux map[string]json.RawMessage) (any, error) {
	if len(aux) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(aux)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeAux(aux sql.NullString) (map[string]json.RawMessage, error) {
	if !aux.Valid || aux.String == "" {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(aux.String), &m); err != nil {
		return nil, fmt.Errorf("failed to decode aux: %w", err)
	}
	return m, nil
}
