package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/manyblack/studio/internal/testutils"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// studioCLI runs commands against a file store in a temporary directory.
type studioCLI struct {
	dir string
}

func newStudioCLI(t *testing.T) *studioCLI {
	return &studioCLI{dir: testutils.TempDir(t)}
}

func (s *studioCLI) run(t *testing.T, jsonOut bool, args ...string) (string, error) {
	t.Helper()
	return s.exec(t, jsonOut, true, args...)
}

// runUnconfirmed runs a command as if the user never answered its prompt.
func (s *studioCLI) runUnconfirmed(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return s.exec(t, false, false, args...)
}

func (s *studioCLI) exec(t *testing.T, jsonOut, yes bool, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	base := []string{
		"--store", "file",
		"--policies-dir", filepath.Join(s.dir, "policies"),
		"--backup-dir", filepath.Join(s.dir, "backup"),
		"--env-file", filepath.Join(s.dir, "missing.env"),
		"--log-level", "error",
	}
	base = append(base, "--json="+strconv.FormatBool(jsonOut), "--yes="+strconv.FormatBool(yes))
	rootCmd.SetArgs(append(args, base...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func (s *studioCLI) writeYAML(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(s.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "studio version ")
}

func TestAutomations_FileStoreLifecycle(t *testing.T) {
	s := newStudioCLI(t)
	path := s.writeYAML(t, "ask_account.yml", testutils.Automation("ask_account"))

	out, err := s.run(t, false, "automations", "add", "-f", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "added ask_account")
	assert.FileExists(t, filepath.Join(s.dir, "policies", "catalog.yml"))

	out, err = s.run(t, true, "automations", "list")
	require.NoError(t, err, out)
	var recs []domain.Automation
	require.NoError(t, json.Unmarshal([]byte(out), &recs), out)
	require.Len(t, recs, 1)
	assert.Equal(t, "ask_account", recs[0].ID)
	assert.Equal(t, domain.Cooldown24h, recs[0].Cooldown)

	out, err = s.run(t, false, "automations", "get", "ask_account")
	require.NoError(t, err, out)
	assert.Contains(t, out, "topic: onboarding")

	out, err = s.run(t, true, "catalog", "stats")
	require.NoError(t, err, out)
	var ov catalog.Overview
	require.NoError(t, json.Unmarshal([]byte(out), &ov), out)
	assert.Equal(t, 1, ov.AutomationsCount)
	assert.True(t, ov.ProceduresEmpty)

	out, err = s.run(t, false, "automations", "reset")
	require.NoError(t, err, out)
	assert.Contains(t, out, "backed up 1 automations")

	out, err = s.run(t, true, "automations", "list")
	require.NoError(t, err, out)
	assert.JSONEq(t, "[]", out)

	_, err = s.run(t, false, "automations", "delete", "ask_account")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAutomations_AddInvalidPrintsIssues(t *testing.T) {
	s := newStudioCLI(t)
	bad := testutils.Automation("ask_account")
	bad.Priority = 2
	path := s.writeYAML(t, "bad.yml", bad)

	out, err := s.run(t, false, "automations", "add", "-f", path)
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.Contains(t, out, "priority")

	out, err = s.run(t, true, "automations", "list")
	require.NoError(t, err, out)
	assert.JSONEq(t, "[]", out)
}

func TestProcedures_GraphMarksMissingTargets(t *testing.T) {
	s := newStudioCLI(t)
	auto := s.writeYAML(t, "ask_account.yml", testutils.Automation("ask_account"))
	proc := s.writeYAML(t, "release.yml", testutils.Procedure("release"))

	_, err := s.run(t, false, "automations", "add", "-f", auto)
	require.NoError(t, err)
	out, err := s.run(t, false, "procedures", "add", "-f", proc)
	require.NoError(t, err, out)
	assert.Contains(t, out, "warning")

	out, err = s.run(t, false, "procedures", "graph", "release")
	require.NoError(t, err, out)
	assert.Contains(t, out, "auto_ask_account")
	assert.Contains(t, out, "class auto_release_test missing;")
	assert.NotContains(t, out, "class auto_ask_account missing;")
}

func TestIntakePreview(t *testing.T) {
	s := newStudioCLI(t)
	out, err := s.run(t, true, "intake", "--confidence", "0.9,0.7,0.4")
	require.NoError(t, err, out)

	var got []struct {
		Confidence float64         `json:"confidence"`
		Strategy   domain.Strategy `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got, 3)
	assert.Equal(t, domain.StrategyDirect, got[0].Strategy)
	assert.Equal(t, domain.StrategyParallel, got[1].Strategy)
	assert.Equal(t, domain.StrategyFallback, got[2].Strategy)
}

func TestIntakeRejectsInvertedThresholds(t *testing.T) {
	s := newStudioCLI(t)
	cfg := domain.DefaultIntakeConfig()
	cfg.Thresholds = domain.Thresholds{Direct: 0.6, Parallel: 0.7}
	path := s.writeYAML(t, "intake.yml", cfg)

	out, err := s.run(t, false, "intake", "-f", path)
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.Contains(t, out, "thresholds")
}

func TestCatalogCheck_ReportsDanglingReferences(t *testing.T) {
	s := newStudioCLI(t)
	proc := s.writeYAML(t, "release.yml", testutils.Procedure("release"))

	out, err := s.run(t, false, "procedures", "add", "-f", proc)
	require.NoError(t, err, out)

	out, err = s.run(t, false, "catalog", "check")
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.Contains(t, out, "does not exist")
}

func TestDestructiveCommandsNeedConfirmation(t *testing.T) {
	s := newStudioCLI(t)
	path := s.writeYAML(t, "ask_account.yml", testutils.Automation("ask_account"))
	_, err := s.run(t, false, "automations", "add", "-f", path)
	require.NoError(t, err)

	for _, args := range [][]string{
		{"automations", "delete", "ask_account"},
		{"automations", "reset"},
		{"automations", "import", "-f", path},
		{"catalog", "reset"},
	} {
		out, err := s.runUnconfirmed(t, args...)
		require.ErrorIs(t, err, errNotConfirmed, args)
		assert.NotContains(t, out, "deleted", args)
	}

	out, err := s.run(t, true, "automations", "list")
	require.NoError(t, err, out)
	var recs []domain.Automation
	require.NoError(t, json.Unmarshal([]byte(out), &recs), out)
	require.Len(t, recs, 1, "nothing changed without confirmation")

	_, err = s.runUnconfirmed(t, "automations", "delete", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound, "existence is checked before asking")

	_, err = s.run(t, false, "automations", "delete", "ask_account")
	require.NoError(t, err)
}

func TestRestoreShowsBackupBeforeActing(t *testing.T) {
	s := newStudioCLI(t)
	_, err := s.runUnconfirmed(t, "automations", "restore", "no_such_backup")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	path := s.writeYAML(t, "ask_account.yml", testutils.Automation("ask_account"))
	_, err = s.run(t, false, "automations", "add", "-f", path)
	require.NoError(t, err)
	out, err := s.run(t, true, "automations", "reset")
	require.NoError(t, err, out)
	var backup domain.Backup
	require.NoError(t, json.Unmarshal([]byte(out), &backup), out)

	_, err = s.runUnconfirmed(t, "automations", "restore", backup.ID)
	require.ErrorIs(t, err, errNotConfirmed)
	assert.ErrorContains(t, err, "the 1 records of backup "+backup.ID)

	_, err = s.run(t, false, "automations", "restore", backup.ID)
	require.NoError(t, err)
	out, err = s.run(t, true, "automations", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "ask_account")
}

func TestLeadsList_RejectsMalformedDate(t *testing.T) {
	s := newStudioCLI(t)
	t.Cleanup(func() { _ = leadsListCmd.Flags().Set("created-from", "") })

	_, err := s.run(t, false, "leads", "list", "--created-from", "yesterday")
	require.ErrorIs(t, err, domain.ErrInvalid)
	assert.ErrorContains(t, err, `created-from "yesterday"`)
}
