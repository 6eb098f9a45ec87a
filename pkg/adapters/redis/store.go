package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/manyblack/studio/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transactions that lose a WATCH race.
const maxTxRetries = 16

// Store implements ports.Catalog using Redis.
//
// Layout under the prefix (default "studio:<catalog>:"):
//
//	records              hash id -> JSON record
//	order                list of ids in insertion order
//	backups              zset backup id scored by creation time (µs)
//	backup:<id>:info     JSON domain.Backup
//	backup:<id>:records  hash, copy of records
//	backup:<id>:order    list, copy of order
//
// Writes run in WATCH/MULTI transactions so replicas sharing a Redis never
// observe a half-applied reset or rename.
type Store[T domain.Record] struct {
	client *backend.Client
	name   domain.CatalogName
	prefix string
	now    func() time.Time
}

type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix sets the key prefix for the catalog.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// New creates a new Redis catalog with options.
func New[T domain.Record](name domain.CatalogName, address, password string, db int, opts ...Option) *Store[T] {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient[T](rdb, name, opts...)
}

// NewFromClient creates a new Redis catalog from an existing client.
func NewFromClient[T domain.Record](client *backend.Client, name domain.CatalogName, opts ...Option) *Store[T] {
	o := options{prefix: "studio:" + string(name) + ":"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		client: client,
		name:   name,
		prefix: o.prefix,
		now:    time.Now,
	}
}

func (s *Store[T]) recordsKey() string { return s.prefix + "records" }
func (s *Store[T]) orderKey() string   { return s.prefix + "order" }
func (s *Store[T]) backupsKey() string { return s.prefix + "backups" }

func (s *Store[T]) backupKey(id, part string) string {
	return s.prefix + "backup:" + id + ":" + part
}

// atomic retries fn while another client wins the WATCH race.
func (s *Store[T]) atomic(ctx context.Context, fn func(tx *backend.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction retried %d times: %w", maxTxRetries, backend.TxFailedErr)
}

func (s *Store[T]) encode(rec T) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func (s *Store[T]) decode(data string) (T, error) {
	var rec T
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

// snapshot reads order and records in one MULTI so both come from the same state.
func (s *Store[T]) snapshot(ctx context.Context, orderKey, recordsKey string) ([]string, map[string]string, error) {
	var (
		order   *backend.StringSliceCmd
		records *backend.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		order = pipe.LRange(ctx, orderKey, 0, -1)
		records = pipe.HGetAll(ctx, recordsKey)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog from redis: %w", err)
	}
	return order.Val(), records.Val(), nil
}

func (s *Store[T]) assemble(order []string, records map[string]string) ([]T, error) {
	out := make([]T, 0, len(order))
	for _, id := range order {
		data, ok := records[id]
		if !ok {
			continue
		}
		rec, err := s.decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// List returns every record in insertion order.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	order, records, err := s.snapshot(ctx, s.orderKey(), s.recordsKey())
	if err != nil {
		return nil, err
	}
	return s.assemble(order, records)
}

// Get retrieves a record.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	val, err := s.client.HGet(ctx, s.recordsKey(), id).Result()
	if err != nil {
		if err == backend.Nil {
			return zero, domain.ErrNotFound
		}
		return zero, fmt.Errorf("failed to get from redis: %w", err)
	}
	return s.decode(val)
}

// Add appends a record.
func (s *Store[T]) Add(ctx context.Context, rec T) error {
	data, err := s.encode(rec)
	if err != nil {
		return err
	}
	id := rec.RecordID()

	return s.atomic(ctx, func(tx *backend.Tx) error {
		exists, err := tx.HExists(ctx, s.recordsKey(), id).Result()
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateID
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, s.recordsKey(), id, data)
			pipe.RPush(ctx, s.orderKey(), id)
			return nil
		})
		return err
	}, s.recordsKey(), s.orderKey())
}

// Update replaces a record, renaming it in place when rec carries a new ID.
func (s *Store[T]) Update(ctx context.Context, id string, rec T) error {
	data, err := s.encode(rec)
	if err != nil {
		return err
	}
	newID := rec.RecordID()

	return s.atomic(ctx, func(tx *backend.Tx) error {
		exists, err := tx.HExists(ctx, s.recordsKey(), id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		if newID == id {
			_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
				pipe.HSet(ctx, s.recordsKey(), id, data)
				return nil
			})
			return err
		}

		taken, err := tx.HExists(ctx, s.recordsKey(), newID).Result()
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrDuplicateID
		}
		order, err := tx.LRange(ctx, s.orderKey(), 0, -1).Result()
		if err != nil {
			return err
		}
		pos := slices.Index(order, id)
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HDel(ctx, s.recordsKey(), id)
			pipe.HSet(ctx, s.recordsKey(), newID, data)
			if pos >= 0 {
				pipe.LSet(ctx, s.orderKey(), int64(pos), newID)
			} else {
				pipe.RPush(ctx, s.orderKey(), newID)
			}
			return nil
		})
		return err
	}, s.recordsKey(), s.orderKey())
}

// Delete removes a record.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx *backend.Tx) error {
		exists, err := tx.HExists(ctx, s.recordsKey(), id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HDel(ctx, s.recordsKey(), id)
			pipe.LRem(ctx, s.orderKey(), 1, id)
			return nil
		})
		return err
	}, s.recordsKey(), s.orderKey())
}

// Reset copies the catalog under a new backup ID and clears it in the same transaction.
func (s *Store[T]) Reset(ctx context.Context) (domain.Backup, error) {
	var backup domain.Backup

	err := s.atomic(ctx, func(tx *backend.Tx) error {
		order, err := tx.LRange(ctx, s.orderKey(), 0, -1).Result()
		if err != nil {
			return err
		}
		records, err := tx.HGetAll(ctx, s.recordsKey()).Result()
		if err != nil {
			return err
		}

		createdAt := s.now().UTC()
		id := uuid.NewString()
		backup = domain.Backup{
			ID:        id,
			Catalog:   s.name,
			CreatedAt: createdAt,
			Count:     len(order),
			Location:  s.prefix + "backup:" + id,
		}
		info, err := json.Marshal(backup)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			if len(records) > 0 {
				pipe.HSet(ctx, s.backupKey(id, "records"), fieldArgs(records)...)
			}
			if len(order) > 0 {
				pipe.RPush(ctx, s.backupKey(id, "order"), toArgs(order)...)
			}
			pipe.Set(ctx, s.backupKey(id, "info"), info, 0)
			pipe.ZAdd(ctx, s.backupsKey(), backend.Z{
				Score:  float64(createdAt.UnixMicro()),
				Member: id,
			})
			pipe.Del(ctx, s.recordsKey(), s.orderKey())
			return nil
		})
		return err
	}, s.recordsKey(), s.orderKey())
	if err != nil {
		return domain.Backup{}, fmt.Errorf("failed to reset catalog: %w", err)
	}
	return backup, nil
}

// Backups lists backups newest first.
func (s *Store[T]) Backups(ctx context.Context) ([]domain.Backup, error) {
	ids, err := s.client.ZRevRange(ctx, s.backupsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]domain.Backup, 0, len(ids))
	for _, id := range ids {
		b, err := s.backupInfo(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		backups = append(backups, b)
	}
	return backups, nil
}

func (s *Store[T]) backupInfo(ctx context.Context, id string) (domain.Backup, error) {
	var b domain.Backup
	val, err := s.client.Get(ctx, s.backupKey(id, "info")).Result()
	if err != nil {
		if err == backend.Nil {
			return b, domain.ErrNotFound
		}
		return b, fmt.Errorf("failed to read backup: %w", err)
	}
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return b, fmt.Errorf("failed to unmarshal backup: %w", err)
	}
	return b, nil
}

// Restore replaces the catalog with a backup's content.
func (s *Store[T]) Restore(ctx context.Context, backupID string) error {
	if _, err := s.backupInfo(ctx, backupID); err != nil {
		return err
	}
	order, records, err := s.snapshot(ctx, s.backupKey(backupID, "order"), s.backupKey(backupID, "records"))
	if err != nil {
		return err
	}
	if _, err := s.assemble(order, records); err != nil {
		return fmt.Errorf("backup %s is corrupt: %w", backupID, err)
	}

	return s.atomic(ctx, func(tx *backend.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, s.recordsKey(), s.orderKey())
			if len(records) > 0 {
				pipe.HSet(ctx, s.recordsKey(), fieldArgs(records)...)
			}
			if len(order) > 0 {
				pipe.RPush(ctx, s.orderKey(), toArgs(order)...)
			}
			return nil
		})
		return err
	}, s.recordsKey(), s.orderKey())
}

// Close closes the redis client.
func (s *Store[T]) Close() error {
	return s.client.Close()
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func fieldArgs(fields map[string]string) []any {
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
