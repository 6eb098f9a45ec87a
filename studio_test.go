package studio_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/manyblack/studio"
	"github.com/manyblack/studio/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_WritesBackendPolicyFiles(t *testing.T) {
	dir := testutils.TempDir(t)
	ctx := context.Background()

	cats := studio.Open(dir)
	_, err := cats.Automations.Add(ctx, testutils.Automation("ask_account"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "policies", "catalog.yml"))

	reopened := studio.Open(dir)
	got, err := reopened.Automations.Get(ctx, "ask_account")
	require.NoError(t, err)
	assert.Equal(t, "onboarding", got.Topic)

	backup, err := reopened.Automations.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backup.Count)

	ov, err := reopened.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, ov.CatalogEmpty)
}
