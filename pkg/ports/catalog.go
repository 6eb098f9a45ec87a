package ports

import (
	"context"

	"github.com/manyblack/studio/pkg/domain"
)

// Catalog persists one kind of record.
//
// Implementations must be safe for concurrent use. Records are copied on the way in and
// out so callers never share state with the store.
type Catalog[T domain.Record] interface {
	// List returns every record in insertion order.
	List(ctx context.Context) ([]T, error)

	// Get retrieves a record. Returns domain.ErrNotFound if the ID does not exist.
	Get(ctx context.Context, id string) (T, error)

	// Add stores a new record. Returns domain.ErrDuplicateID if the ID is taken.
	Add(ctx context.Context, rec T) error

	// Update replaces the record stored under id. Returns domain.ErrNotFound if id is
	// absent. When rec carries a different ID the record is renamed, which fails with
	// domain.ErrDuplicateID if the new ID is taken.
	Update(ctx context.Context, id string, rec T) error

	// Delete removes a record. Returns domain.ErrNotFound if id is absent, leaving the
	// catalog unchanged.
	Delete(ctx context.Context, id string) error

	// Reset backs up the whole catalog and then clears it. Readers observe either the
	// full catalog or the empty one, never a partial state.
	Reset(ctx context.Context) (domain.Backup, error)

	// Backups lists the backups taken by Reset, newest first.
	Backups(ctx context.Context) ([]domain.Backup, error)

	// Restore replaces the catalog with the content of a backup.
	// Returns domain.ErrNotFound if the backup does not exist.
	Restore(ctx context.Context, backupID string) error
}
