package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/internal/metrics"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/manyblack/studio/pkg/schema"
	"gopkg.in/yaml.v3"
)

// DefaultLockTTL bounds how long a reset or restore may hold the catalog lock.
const DefaultLockTTL = 30 * time.Second

// Op names a catalog change.
type Op string

const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReset   Op = "reset"
	OpRestore Op = "restore"
	OpImport  Op = "import"
)

// Event describes a committed change. ID is empty for whole-catalog operations.
type Event struct {
	Catalog domain.CatalogName `json:"catalog"`
	Op      Op                 `json:"op"`
	ID      string             `json:"id,omitempty"`
	Time    time.Time          `json:"time"`
}

// Notifier receives events after the store committed them.
type Notifier func(Event)

// ValidateFunc checks rec against the other records' IDs.
type ValidateFunc[T domain.Record] func(ctx context.Context, rec T, taken schema.IDSet) schema.Report

// Option configures a Service.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	notifier Notifier
	now      func() time.Time
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records operations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocker serialises Reset, Restore and Import across processes.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.locker = l
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithNotifier publishes committed changes.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// Service validates and persists one catalog.
type Service[T domain.Record] struct {
	name     domain.CatalogName
	store    ports.Catalog[T]
	validate ValidateFunc[T]
	// beforeDelete may report warnings about a deletion; it cannot veto it.
	beforeDelete func(ctx context.Context, id string) schema.Report
	opts         options
}

// NewService wraps store. validate must not be nil.
func NewService[T domain.Record](name domain.CatalogName, store ports.Catalog[T], validate ValidateFunc[T], opts ...Option) *Service[T] {
	o := options{
		logger:  logging.NewNop(),
		lockTTL: DefaultLockTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service[T]{name: name, store: store, validate: validate, opts: o}
}

// Name returns the catalog name.
func (s *Service[T]) Name() domain.CatalogName { return s.name }

// Store returns the underlying store.
func (s *Service[T]) Store() ports.Catalog[T] { return s.store }

func (s *Service[T]) done(ctx context.Context, op Op, id string, err error) {
	catalog := string(s.name)
	if err != nil {
		s.opts.metrics.Failure(catalog, string(op), reason(err))
		s.opts.logger.DebugContext(ctx, "catalog operation failed", "catalog", catalog, "op", op, "id", id, "error", err)
		return
	}
	s.opts.metrics.Operation(catalog, string(op))
	s.opts.logger.InfoContext(ctx, "catalog changed", "catalog", catalog, "op", op, "id", id)
	if s.opts.notifier != nil {
		s.opts.notifier(Event{Catalog: s.name, Op: op, ID: id, Time: s.opts.now().UTC()})
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateID):
		return "duplicate"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store"
	}
}

// List returns every record in insertion order.
func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.name, err)
	}
	s.opts.metrics.Records(string(s.name), len(recs))
	return recs, nil
}

// Get retrieves a record.
func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	return s.store.Get(ctx, id)
}

// IDs returns the set of IDs in the catalog.
func (s *Service[T]) IDs(ctx context.Context) (schema.IDSet, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(schema.IDSet, len(recs))
	for _, r := range recs {
		ids[r.RecordID()] = struct{}{}
	}
	return ids, nil
}

// Check validates rec as a new record without storing it.
func (s *Service[T]) Check(ctx context.Context, rec T) (schema.Report, error) {
	taken, err := s.IDs(ctx)
	if err != nil {
		return schema.Report{}, err
	}
	return s.validate(ctx, rec, taken), nil
}

// Add validates and stores a new record. The returned report carries warnings.
// A taken ID fails with domain.ErrDuplicateID, any other failed validation with a
// *schema.AggregateError. Either way the store is not touched and the report lists
// every issue found.
func (s *Service[T]) Add(ctx context.Context, rec T) (schema.Report, error) {
	id := rec.RecordID()
	var report schema.Report
	taken, err := s.IDs(ctx)
	if err == nil {
		report = s.validate(ctx, rec, taken)
		err = s.duplicate(taken, id)
	}
	if err == nil {
		err = report.Err()
	}
	if err == nil {
		err = s.store.Add(ctx, rec)
	}
	s.done(ctx, OpAdd, id, err)
	return report, err
}

func (s *Service[T]) duplicate(taken schema.IDSet, id string) error {
	if id != "" && taken.Has(id) {
		return fmt.Errorf("%s %q: %w", s.name, id, domain.ErrDuplicateID)
	}
	return nil
}

// Update validates rec and stores it under id. rec may carry a new ID to rename the record.
func (s *Service[T]) Update(ctx context.Context, id string, rec T) (schema.Report, error) {
	var report schema.Report
	taken, err := s.IDs(ctx)
	if err == nil && !taken.Has(id) {
		err = domain.ErrNotFound
	}
	if err == nil {
		others := taken.Without(id)
		report = s.validate(ctx, rec, others)
		err = s.duplicate(others, rec.RecordID())
	}
	if err == nil {
		err = report.Err()
	}
	if err == nil {
		err = s.store.Update(ctx, id, rec)
	}
	s.done(ctx, OpUpdate, id, err)
	return report, err
}

// Delete removes a record. The report may warn about records that still reference it.
func (s *Service[T]) Delete(ctx context.Context, id string) (schema.Report, error) {
	var report schema.Report
	if s.beforeDelete != nil {
		report = s.beforeDelete(ctx, id)
	}
	err := s.store.Delete(ctx, id)
	s.done(ctx, OpDelete, id, err)
	if err != nil {
		return schema.Report{}, err
	}
	return report, nil
}

func (s *Service[T]) locked(ctx context.Context, fn func() error) error {
	if s.opts.locker == nil {
		return fn()
	}
	unlock, err := s.opts.locker.Lock(ctx, "catalog:"+string(s.name), s.opts.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.name, err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.opts.logger.WarnContext(ctx, "failed to release catalog lock", "catalog", s.name, "error", err)
		}
	}()
	return fn()
}

// Reset backs up the catalog and clears it.
func (s *Service[T]) Reset(ctx context.Context) (domain.Backup, error) {
	var backup domain.Backup
	err := s.locked(ctx, func() error {
		var err error
		backup, err = s.store.Reset(ctx)
		return err
	})
	s.done(ctx, OpReset, "", err)
	if err != nil {
		return domain.Backup{}, err
	}
	s.opts.logger.InfoContext(ctx, "catalog backed up", "catalog", s.name, "backup", backup.ID, "count", backup.Count)
	return backup, nil
}

// Backups lists backups newest first.
func (s *Service[T]) Backups(ctx context.Context) ([]domain.Backup, error) {
	return s.store.Backups(ctx)
}

// Restore replaces the catalog with a backup.
func (s *Service[T]) Restore(ctx context.Context, backupID string) error {
	err := s.locked(ctx, func() error {
		return s.store.Restore(ctx, backupID)
	})
	s.done(ctx, OpRestore, backupID, err)
	return err
}

// Export renders the catalog as the YAML document the policy files use.
func (s *Service[T]) Export(ctx context.Context) ([]byte, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", s.name, err)
	}
	return data, nil
}

// Import replaces the whole catalog with the records in a YAML document.
//
// Every record is validated against the others in the document first; nothing is written
// unless all of them pass. The previous content is kept as a backup, which is returned.
func (s *Service[T]) Import(ctx context.Context, doc []byte) (domain.Backup, schema.Report, error) {
	var recs []T
	if err := yaml.Unmarshal(doc, &recs); err != nil {
		err = &schema.AggregateError{Errors: []error{
			&schema.ValidationError{Key: "document", Reason: err.Error(), Severity: schema.SeverityError},
		}}
		s.done(ctx, OpImport, "", err)
		return domain.Backup{}, schema.Report{}, err
	}

	var report schema.Report
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.RecordID()
	}
	for i, r := range recs {
		others := schema.NewIDSet(append(append([]string{}, ids[:i]...), ids[i+1:]...)...)
		report.MergeAt(fmt.Sprintf("[%d]", i), s.validate(ctx, r, others))
	}
	if err := report.Err(); err != nil {
		s.done(ctx, OpImport, "", err)
		return domain.Backup{}, report, err
	}

	var backup domain.Backup
	err := s.locked(ctx, func() error {
		var err error
		if backup, err = s.store.Reset(ctx); err != nil {
			return err
		}
		for _, r := range recs {
			if err := s.store.Add(ctx, r); err != nil {
				// Put the previous content back rather than leave a partial import
				if rerr := s.store.Restore(ctx, backup.ID); rerr != nil {
					return errors.Join(err, rerr)
				}
				return err
			}
		}
		return nil
	})
	s.done(ctx, OpImport, "", err)
	if err != nil {
		return domain.Backup{}, report, err
	}
	return backup, report, nil
}
