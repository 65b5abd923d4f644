package apps

import (
	"context"
	"errors"

	"appforge/internal/gateway/entity"
)

// Store persists generation records keyed by integer id.
type Store interface {
	// Create assigns an id and creation time and returns the stored record.
	Create(ctx context.Context, rec entity.GenerationRecord) (entity.GenerationRecord, error)
	// Update replaces every mutable field of the record with rec.ID.
	Update(ctx context.Context, rec entity.GenerationRecord) error
	Get(ctx context.Context, id int64) (entity.GenerationRecord, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]entity.GenerationRecord, error)
	// Delete removes a record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id int64) error
}

var ErrNotFound = errors.New("generation record not found")
