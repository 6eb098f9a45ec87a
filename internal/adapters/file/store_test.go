package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/manyblack/studio/internal/adapters/file"
	"github.com/manyblack/studio/internal/testutils"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Ensure Store implements Catalog
var _ ports.Catalog[domain.Automation] = (*file.Store[domain.Automation])(nil)

func newAutomations(t *testing.T) (*file.Store[domain.Automation], string) {
	dir := testutils.TempDir(t)
	return file.New[domain.Automation](domain.Automations, filepath.Join(dir, "policies"), filepath.Join(dir, "backup")), dir
}

func TestFileStore_AutomationContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Automation] {
		s, _ := newAutomations(t)
		return s
	}, testutils.Automation)
}

func TestFileStore_ProcedureContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Procedure] {
		dir := testutils.TempDir(t)
		return file.New[domain.Procedure](domain.Procedures, filepath.Join(dir, "policies"), filepath.Join(dir, "backup"))
	}, testutils.Procedure)
}

func TestFileStore_ReadsBackendPolicyFile(t *testing.T) {
	store, dir := newAutomations(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policies"), 0755))

	policy := `---
- id: ask_deposit
  topic: deposito
  eligibility: conta confirmada e sem depósito
  priority: 0.95
  cooldown: 12h
  output:
    type: message
    text: Falta só o depósito!
    buttons:
      - id: ok
        label: Depositei
        kind: callback
        set_facts:
          deposit.status: pending
`
	require.NoError(t, os.WriteFile(store.Path, []byte(policy), 0644))

	a, err := store.Get(context.Background(), "ask_deposit")
	require.NoError(t, err)
	assert.Equal(t, 0.95, a.Priority)
	assert.Equal(t, domain.Cooldown12h, a.Cooldown)
	assert.Equal(t, domain.FactsJSON(`{"deposit.status":"pending"}`), a.Output.Buttons[0].SetFacts)
}

func TestFileStore_UpdateKeepsUnmodelledKeys(t *testing.T) {
	ctx := context.Background()
	store, dir := newAutomations(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "policies"), 0755))

	policy := `- id: ask_deposit
  topic: deposito
  eligibility: conta confirmada e sem depósito
  use_when:
    - deposit.status == nenhum
  priority: 0.95
  cooldown: 12h
  output:
    type: message
    text: Falta só o depósito!
    track: deposit_nudge
    buttons:
      - id: ok
        label: Depositei
        kind: quick_reply
        style: primary
`
	require.NoError(t, os.WriteFile(store.Path, []byte(policy), 0644))

	a, err := store.Get(ctx, "ask_deposit")
	require.NoError(t, err)
	a.Topic = "deposit"
	require.NoError(t, store.Update(ctx, a.ID, a))

	data, err := os.ReadFile(store.Path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Len(t, raw, 1)

	assert.Equal(t, "deposit", raw[0]["topic"])
	assert.Equal(t, []any{"deposit.status == nenhum"}, raw[0]["use_when"])
	output := raw[0]["output"].(map[string]any)
	assert.Equal(t, "deposit_nudge", output["track"])
	button := output["buttons"].([]any)[0].(map[string]any)
	assert.Equal(t, "primary", button["style"])
}

func TestFileStore_ResetWritesBackupDirectory(t *testing.T) {
	ctx := context.Background()
	store, dir := newAutomations(t)
	require.NoError(t, store.Add(ctx, testutils.Automation("a1")))
	require.NoError(t, store.Add(ctx, testutils.Automation("a2")))

	backup, err := store.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "backup", backup.ID), backup.Location)
	assert.FileExists(t, filepath.Join(backup.Location, "catalog.yml"))
	assert.FileExists(t, filepath.Join(backup.Location, "backup_info.json"))

	content, err := os.ReadFile(store.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[]")
}

func TestFileStore_ResetFailsWithoutClearingWhenBackupFails(t *testing.T) {
	ctx := context.Background()
	dir := testutils.TempDir(t)
	blocker := filepath.Join(dir, "backup")
	// A regular file where the backup directory should go makes MkdirAll fail
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := file.New[domain.Automation](domain.Automations, filepath.Join(dir, "policies"), blocker)
	require.NoError(t, store.Add(ctx, testutils.Automation("keep")))

	_, err := store.Reset(ctx)
	require.Error(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_RestoreRejectsPaths(t *testing.T) {
	store, _ := newAutomations(t)
	assert.ErrorIs(t, store.Restore(context.Background(), "../etc"), domain.ErrNotFound)
}

func TestFileStore_BackupsAreScopedPerCatalog(t *testing.T) {
	ctx := context.Background()
	dir := testutils.TempDir(t)
	autos := file.New[domain.Automation](domain.Automations, filepath.Join(dir, "policies"), filepath.Join(dir, "backup"))
	procs := file.New[domain.Procedure](domain.Procedures, filepath.Join(dir, "policies"), filepath.Join(dir, "backup"))

	_, err := autos.Reset(ctx)
	require.NoError(t, err)

	backups, err := procs.Backups(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)
}
