package http_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/manyblack/studio/internal/testutils"
	studiohttp "github.com/manyblack/studio/pkg/adapters/http"
	"github.com/manyblack/studio/pkg/client"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteClient(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(newFixture(t).handler)
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestRemoteCatalog_AutomationContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Automation] {
		return studiohttp.NewRemoteCatalog[domain.Automation](remoteClient(t), domain.Automations)
	}, testutils.Automation)
}

func TestRemoteCatalog_ProcedureContract(t *testing.T) {
	ports.RunCatalogContract(t, func(t *testing.T) ports.Catalog[domain.Procedure] {
		return studiohttp.NewRemoteCatalog[domain.Procedure](remoteClient(t), domain.Procedures)
	}, testutils.Procedure)
}

func TestRemoteCatalog_InvalidRecord(t *testing.T) {
	store := studiohttp.NewRemoteCatalog[domain.Automation](remoteClient(t), domain.Automations)

	bad := testutils.Automation("bad")
	bad.Output.Text = ""
	err := store.Add(context.Background(), bad)
	require.ErrorIs(t, err, domain.ErrInvalid)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Report().Has("output.text"))
}
