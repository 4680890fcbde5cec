package notes

import (
	"context"

	"github.com/akozadaev/inkpad/internal/client/models"
)

// Repository is the local durable store contract. Implementations are
// typically backed by a local SQLite database.
type Repository interface {
	// Put upserts a note by (owner, id), overwriting the full row. It is
	// idempotent and returns only once the write is durable.
	Put(ctx context.Context, note *models.Note) error

	// GetAll returns every note for the owner, in no particular order.
	GetAll(ctx context.Context, ownerID string) ([]*models.Note, error)

	// GetByID returns a note or common.ErrNotFound.
	GetByID(ctx context.Context, ownerID, id string) (*models.Note, error)

	// Delete removes a note. Deleting a non-existent id is not an error.
	Delete(ctx context.Context, ownerID, id string) error
}
