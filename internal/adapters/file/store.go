package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manyblack/studio/pkg/domain"
	"gopkg.in/yaml.v3"
)

const backupInfoFile = "backup_info.json"

// FileName returns the policy file holding a catalog.
func FileName(name domain.CatalogName) string {
	if name == domain.Automations {
		return "catalog.yml"
	}
	return string(name) + ".yml"
}

// Store implements ports.Catalog on a YAML policy file.
//
// The whole catalog lives in one file (policies/catalog.yml or policies/procedures.yml) that
// the backend also reads. Every write replaces the file atomically. Backups are directories
// under BackupPath holding a copy of the file plus a backup_info.json descriptor.
type Store[T domain.Record] struct {
	Name       domain.CatalogName
	Path       string
	BackupPath string

	mu  sync.RWMutex
	now func() time.Time
}

// New creates a Store for a catalog.
// If policiesDir is empty it defaults to "policies"; if backupDir is empty, to "backup".
func New[T domain.Record](name domain.CatalogName, policiesDir, backupDir string) *Store[T] {
	if policiesDir == "" {
		policiesDir = "policies"
	}
	if backupDir == "" {
		backupDir = "backup"
	}
	return &Store[T]{
		Name:       name,
		Path:       filepath.Join(policiesDir, FileName(name)),
		BackupPath: backupDir,
		now:        time.Now,
	}
}

func (s *Store[T]) read() ([]T, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return decode[T](data)
}

func decode[T domain.Record](data []byte) ([]T, error) {
	var recs []T
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return recs, nil
}

func (s *Store[T]) write(recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	body, err := yaml.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	header := fmt.Sprintf("# %s catalog, managed by studio\n", s.Name)
	return atomicWrite(s.Path, append([]byte(header), body...))
}

// atomicWrite writes to a temporary file first, syncs via fsync, and then renames it to the
// destination, so concurrent readers see either the old or the new content.
func atomicWrite(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	// Same directory so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(dir, "tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func indexOf[T domain.Record](recs []T, id string) int {
	return slices.IndexFunc(recs, func(r T) bool { return r.RecordID() == id })
}

// List returns every record in file order.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.read()
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

// Get retrieves a record.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	recs, err := s.List(ctx)
	if err != nil {
		return zero, err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return zero, domain.ErrNotFound
	}
	return recs[i], nil
}

// Add appends a record to the file.
func (s *Store[T]) Add(ctx context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return err
	}
	if indexOf(recs, rec.RecordID()) >= 0 {
		return domain.ErrDuplicateID
	}
	return s.write(append(recs, rec))
}

// Update replaces a record in place.
func (s *Store[T]) Update(ctx context.Context, id string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	if rec.RecordID() != id && indexOf(recs, rec.RecordID()) >= 0 {
		return domain.ErrDuplicateID
	}
	recs[i] = rec
	return s.write(recs)
}

// Delete removes a record.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return err
	}
	i := indexOf(recs, id)
	if i < 0 {
		return domain.ErrNotFound
	}
	return s.write(slices.Delete(recs, i, i+1))
}

// Reset copies the policy file into a new backup directory, then replaces it with an
// empty catalog. If the backup cannot be written the catalog is left untouched.
func (s *Store[T]) Reset(ctx context.Context) (domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		return domain.Backup{}, err
	}

	createdAt := s.now().UTC()
	id := fmt.Sprintf("%s_backup_%s_%s",
		strings.TrimSuffix(FileName(s.Name), ".yml"),
		createdAt.Format("20060102_150405"),
		uuid.NewString()[:8],
	)
	backup := domain.Backup{
		ID:        id,
		Catalog:   s.Name,
		CreatedAt: createdAt,
		Count:     len(recs),
		Location:  filepath.Join(s.BackupPath, id),
	}

	if err := s.writeBackup(backup); err != nil {
		return domain.Backup{}, fmt.Errorf("backup failed, catalog not reset: %w", err)
	}
	if err := s.write(nil); err != nil {
		return domain.Backup{}, err
	}
	return backup, nil
}

func (s *Store[T]) writeBackup(b domain.Backup) error {
	if err := os.MkdirAll(b.Location, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := os.ReadFile(s.Path)
	switch {
	case err == nil:
		if err := atomicWrite(filepath.Join(b.Location, FileName(s.Name)), data); err != nil {
			return err
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	info, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(b.Location, backupInfoFile), info)
}

// Backups lists this catalog's backups, newest first.
func (s *Store[T]) Backups(ctx context.Context) ([]domain.Backup, error) {
	entries, err := os.ReadDir(s.BackupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Backup{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := []domain.Backup{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		b, err := s.readBackupInfo(entry.Name())
		if err != nil || b.Catalog != s.Name {
			continue
		}
		backups = append(backups, b)
	}
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func (s *Store[T]) readBackupInfo(id string) (domain.Backup, error) {
	var b domain.Backup
	data, err := os.ReadFile(filepath.Join(s.BackupPath, id, backupInfoFile))
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, err
	}
	return b, nil
}

// Restore copies a backup's policy file back into place.
func (s *Store[T]) Restore(ctx context.Context, backupID string) error {
	if backupID == "" || strings.ContainsAny(backupID, `/\`) || backupID == ".." {
		return domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.readBackupInfo(backupID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if b.Catalog != s.Name {
		return domain.ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.BackupPath, backupID, FileName(s.Name)))
	if err != nil {
		if os.IsNotExist(err) {
			// backup of a catalog that had no file yet
			return s.write(nil)
		}
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	if _, err := decode[T](data); err != nil {
		return err
	}
	return atomicWrite(s.Path, data)
}
