package ports

import (
	"context"
	"fmt"
	"testing"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCatalogContract runs a suite of tests to verify that a Catalog implementation
// adheres to the defined interface contract.
//
// newStore must return an empty catalog on every call. record must return a valid record
// with the given ID; calling it twice with the same ID must yield equal records.
func RunCatalogContract[T domain.Record](t *testing.T, newStore func(t *testing.T) Catalog[T], record func(id string) T) {
	ctx := context.Background()

	ids := func(recs []T) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.RecordID()
		}
		return out
	}

	seed := func(t *testing.T, store Catalog[T], n int) {
		for i := 1; i <= n; i++ {
			require.NoError(t, store.Add(ctx, record(fmt.Sprintf("rec_%d", i))))
		}
	}

	t.Run("Add and Get", func(t *testing.T) {
		store := newStore(t)
		want := record("welcome")

		require.NoError(t, store.Add(ctx, want), "Add should not return error")

		got, err := store.Get(ctx, "welcome")
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, want, got)
	})

	t.Run("Add Duplicate", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Add(ctx, record("dup")))

		err := store.Add(ctx, record("dup"))
		assert.ErrorIs(t, err, domain.ErrDuplicateID)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List Keeps Insertion Order", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, store.Add(ctx, record(id)))
		}

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, ids(all))
	})

	t.Run("List Empty", func(t *testing.T) {
		store := newStore(t)
		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Update", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 2)

		require.NoError(t, store.Update(ctx, "rec_1", record("rec_1")))

		err := store.Update(ctx, "missing", record("missing"))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound, "Update must not create records")
	})

	t.Run("Update Renames", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 3)

		require.NoError(t, store.Update(ctx, "rec_2", record("renamed")))

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"rec_1", "renamed", "rec_3"}, ids(all), "rename keeps position")

		_, err = store.Get(ctx, "rec_2")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = store.Update(ctx, "renamed", record("rec_1"))
		assert.ErrorIs(t, err, domain.ErrDuplicateID)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 2)

		require.NoError(t, store.Delete(ctx, "rec_1"), "Delete should not return error")

		_, err := store.Get(ctx, "rec_1")
		assert.ErrorIs(t, err, domain.ErrNotFound, "Get after Delete should return ErrNotFound")
	})

	t.Run("Delete Non-Existent Leaves Catalog Unchanged", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 3)
		before, err := store.List(ctx)
		require.NoError(t, err)

		err = store.Delete(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		after, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Reset Backs Up Then Clears", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 4)

		backup, err := store.Reset(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, backup.ID)
		assert.Equal(t, 4, backup.Count)
		assert.False(t, backup.CreatedAt.IsZero())

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		backups, err := store.Backups(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, backups)
		assert.Equal(t, backup.ID, backups[0].ID)
	})

	t.Run("Restore", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, 3)
		original, err := store.List(ctx)
		require.NoError(t, err)

		backup, err := store.Reset(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Add(ctx, record("after_reset")))

		require.NoError(t, store.Restore(ctx, backup.ID))

		restored, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, original, restored)

		err = store.Restore(ctx, "no-such-backup")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Reset Empty Catalog", func(t *testing.T) {
		store := newStore(t)
		backup, err := store.Reset(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, backup.Count)
	})
}
