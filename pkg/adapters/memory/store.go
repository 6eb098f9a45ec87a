package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manyblack/studio/pkg/domain"
)

type snapshot[T domain.Record] struct {
	backup  domain.Backup
	records []T
}

// Store implements ports.Catalog in memory. It backs the Studio's mock mode.
// Safe for concurrent use.
type Store[T domain.Record] struct {
	name    domain.CatalogName
	records []T
	backups []snapshot[T]
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new in-memory catalog.
func NewStore[T domain.Record](name domain.CatalogName) *Store[T] {
	return &Store[T]{name: name, now: time.Now}
}

// indexOf must be called with the lock held.
func (s *Store[T]) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r T) bool { return r.RecordID() == id })
}

// List returns copies of every record in insertion order.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

// Get retrieves a copy of a record.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		var zero T
		return zero, domain.ErrNotFound
	}
	// Copy on read so callers can't mutate store state through shared maps or slices
	return domain.Clone(s.records[i])
}

// Add stores a copy of rec.
func (s *Store[T]) Add(ctx context.Context, rec T) error {
	copied, err := domain.Clone(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(rec.RecordID()) >= 0 {
		return domain.ErrDuplicateID
	}
	s.records = append(s.records, copied)
	return nil
}

// Update replaces the record stored under id, keeping its position.
func (s *Store[T]) Update(ctx context.Context, id string, rec T) error {
	copied, err := domain.Clone(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	if rec.RecordID() != id && s.indexOf(rec.RecordID()) >= 0 {
		return domain.ErrDuplicateID
	}
	s.records[i] = copied
	return nil
}

// Delete removes a record.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	s.records = slices.Delete(s.records, i, i+1)
	return nil
}

// Reset keeps the current records as a backup and clears the catalog under one lock.
func (s *Store[T]) Reset(ctx context.Context) (domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := domain.Backup{
		ID:        uuid.NewString(),
		Catalog:   s.name,
		CreatedAt: s.now().UTC(),
		Count:     len(s.records),
		Location:  "memory",
	}
	s.backups = append(s.backups, snapshot[T]{backup: backup, records: s.records})
	s.records = nil
	return backup, nil
}

// Backups lists backups newest first.
func (s *Store[T]) Backups(ctx context.Context) ([]domain.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Backup, 0, len(s.backups))
	for i := len(s.backups) - 1; i >= 0; i-- {
		out = append(out, s.backups[i].backup)
	}
	return out, nil
}

// Restore replaces the catalog with a backup's records.
func (s *Store[T]) Restore(ctx context.Context, backupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.backups {
		if b.backup.ID == backupID {
			records, err := cloneAll(b.records)
			if err != nil {
				return err
			}
			s.records = records
			return nil
		}
	}
	return domain.ErrNotFound
}

func cloneAll[T domain.Record](recs []T) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		c, err := domain.Clone(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
