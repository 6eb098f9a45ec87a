package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/manyblack/studio/internal/cli"
	"github.com/manyblack/studio/internal/config"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openWith(t *testing.T, cfg *config.Config) *cli.Studio {
	t.Helper()
	s, err := cli.OpenCatalogs(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCatalogs(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := testutils.TempDir(t)

	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"memory", config.Config{Store: config.StoreMemory}},
		{"file", config.Config{Store: config.StoreFile, PoliciesDir: dir + "/policies", BackupDir: dir + "/backup"}},
		{"redis", config.Config{Store: config.StoreRedis, Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "t:"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := openWith(t, &tt.cfg)

			_, err := s.Catalogs.Automations.Add(ctx, testutils.Automation("ask_account"))
			require.NoError(t, err)
			report, err := s.Catalogs.Procedures.Add(ctx, testutils.Procedure("p1"))
			require.NoError(t, err)
			// ask_account resolves, ask_deposit and release_test do not
			assert.Len(t, report.Warnings(), 2)

			ov, err := s.Catalogs.Overview(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, ov.AutomationsCount)
			assert.Equal(t, 1, ov.ProceduresCount)
		})
	}

	assert.True(t, mr.Exists("t:automations:records"))
}

func TestOpenCatalogs_MemoryStoreWarns(t *testing.T) {
	var buf bytes.Buffer
	s, err := cli.OpenCatalogs(&config.Config{Store: config.StoreMemory}, logging.NewWithWriters(&buf, nil, slog.LevelInfo))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Contains(t, buf.String(), "memory store")

	buf.Reset()
	dir := testutils.TempDir(t)
	_, err = cli.OpenCatalogs(&config.Config{Store: config.StoreFile, PoliciesDir: dir}, logging.NewWithWriters(&buf, nil, slog.LevelInfo))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestOpenCatalogs_UnknownStore(t *testing.T) {
	_, err := cli.OpenCatalogs(&config.Config{Store: "sqlite"}, logging.NewNop())
	assert.Error(t, err)
}
