package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manyblack/studio/internal/metrics"
	"github.com/manyblack/studio/internal/testutils"
	studiohttp "github.com/manyblack/studio/pkg/adapters/http"
	"github.com/manyblack/studio/pkg/adapters/memory"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/stream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalogs *catalog.Catalogs
	streams  *studiohttp.StreamManager
	metrics  *metrics.Metrics
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := metrics.New()
	streams := studiohttp.NewStreamManager(nil, m)
	opts := []catalog.Option{catalog.WithMetrics(m), catalog.WithNotifier(streams.Publish)}
	autos := catalog.NewAutomations(memory.NewStore[domain.Automation](domain.Automations), opts...)
	procs := catalog.NewProcedures(memory.NewStore[domain.Procedure](domain.Procedures), nil, opts...)
	cats := catalog.New(autos, procs)

	h, err := studiohttp.NewHandler(cats, studiohttp.WithMetrics(m), studiohttp.WithStreams(streams), studiohttp.WithVersion("1.2.3\n"))
	require.NoError(t, err)
	return &fixture{catalogs: cats, streams: streams, metrics: m, handler: h}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *strings.Reader
	switch b := body.(type) {
	case nil:
		payload = strings.NewReader("")
	case string:
		payload = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		payload = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

type problem struct {
	Detail string `json:"detail"`
	Issues []struct {
		Field    string `json:"field"`
		Reason   string `json:"reason"`
		Severity string `json:"severity"`
	} `json:"issues"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestLoadSpec(t *testing.T) {
	doc, err := studiohttp.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/catalog/{catalog}/{id}"))
}

func TestHealthAndInfo(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	info := decode[map[string]string](t, f.do(t, http.MethodGet, "/info", nil))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = f.do(t, http.MethodGet, "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
}

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodOptions, "/api/catalog/automations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAutomations_CRUD(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation("welcome"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation("welcome"))
	assert.Equal(t, http.StatusConflict, w.Code)

	got := decode[domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations/welcome", nil))
	assert.Equal(t, testutils.Automation("welcome"), got)

	renamed := testutils.Automation("greeting")
	w = f.do(t, http.MethodPut, "/api/catalog/automations/welcome", renamed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[[]domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "greeting", list[0].ID)

	w = f.do(t, http.MethodDelete, "/api/catalog/automations/welcome", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodDelete, "/api/catalog/automations/greeting", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAutomations_RenameOntoTakenIDConflicts(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"welcome", "greeting"} {
		w := f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation(id))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(t, http.MethodPut, "/api/catalog/automations/welcome", testutils.Automation("greeting"))
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	list := decode[[]domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations", nil))
	assert.Len(t, list, 2)
}

func TestAutomations_InvalidIsRejected(t *testing.T) {
	f := newFixture(t)

	bad := testutils.Automation("bad")
	bad.Topic = ""
	bad.Priority = 2
	w := f.do(t, http.MethodPost, "/api/catalog/automations", bad)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	p := decode[problem](t, w)
	fields := make([]string, 0, len(p.Issues))
	for _, issue := range p.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Contains(t, fields, "topic")
	assert.Contains(t, fields, "priority")

	list := decode[[]domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations", nil))
	assert.Empty(t, list, "invalid record must not reach the store")
}

func TestAutomations_MalformedBody(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`not json`, `[]`, `{"topic":"x"}`, `{"id":3}`} {
		w := f.do(t, http.MethodPost, "/api/catalog/automations", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, body)
		assert.Equal(t, "body", decode[problem](t, w).Issues[0].Field, body)
	}
}

func TestStatsEndpoints(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation("welcome"))
	require.Equal(t, http.StatusCreated, w.Code)

	ov := decode[catalog.Overview](t, f.do(t, http.MethodGet, "/api/catalog/stats", nil))
	assert.Equal(t, catalog.Overview{AutomationsCount: 1, ProceduresCount: 0, ProceduresEmpty: true}, ov)

	stats := decode[catalog.Stats](t, f.do(t, http.MethodGet, "/api/catalog/automations/stats", nil))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, "24h", stats.AvgCooldown)

	pstats := decode[catalog.ProcedureStats](t, f.do(t, http.MethodGet, "/api/catalog/procedures/stats", nil))
	assert.Equal(t, 0, pstats.Total)
}

func TestResetAll(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation("a1")).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/catalog/procedures", testutils.Procedure("p1")).Code)

	w := f.do(t, http.MethodPost, "/api/catalog/reset", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Success      bool            `json:"success"`
		BackupPath   string          `json:"backup_path"`
		ResetResults catalog.Backups `json:"reset_results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.BackupPath)
	assert.Equal(t, 1, res.ResetResults.Automations.Count)
	assert.Equal(t, 1, res.ResetResults.Procedures.Count)

	ov := decode[catalog.Overview](t, f.do(t, http.MethodGet, "/api/catalog/stats", nil))
	assert.True(t, ov.CatalogEmpty)
	assert.True(t, ov.ProceduresEmpty)

	backups := decode[[]domain.Backup](t, f.do(t, http.MethodGet, "/api/catalog/automations/backups", nil))
	require.Len(t, backups, 1)
	w = f.do(t, http.MethodPost, "/api/catalog/automations/backups/"+backups[0].ID+"/restore", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	list := decode[[]domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations", nil))
	assert.Len(t, list, 1)
}

func TestSaveAndExport(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/catalog/automations", testutils.Automation("old")).Code)

	exported := f.do(t, http.MethodGet, "/api/catalog/automations/export", nil)
	require.Equal(t, http.StatusOK, exported.Code)
	assert.Contains(t, exported.Body.String(), "id: old")

	doc := strings.ReplaceAll(exported.Body.String(), "id: old", "id: new")
	w := f.do(t, http.MethodPost, "/api/catalog/save", map[string]string{"content": doc})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := decode[[]domain.Automation](t, f.do(t, http.MethodGet, "/api/catalog/automations", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)

	w = f.do(t, http.MethodPost, "/api/catalog/save-procedures", map[string]string{"content": "- id: p1\n"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, decode[problem](t, w).Issues)

	w = f.do(t, http.MethodPost, "/api/catalog/save", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRequestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/catalog/automations/missing", nil)

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "studio_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEvents_StreamCatalogChanges(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/catalog/events?catalog=automations", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dec := stream.NewDecoder(bufio.NewReader(resp.Body))
	ping, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "ping", ping.Type)
	require.Eventually(t, func() bool { return f.streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// Procedure changes are filtered out for this subscriber
	_, err = f.catalogs.Procedures.Add(ctx, testutils.Procedure("p1"))
	require.NoError(t, err)
	_, err = f.catalogs.Automations.Add(ctx, testutils.Automation("welcome"))
	require.NoError(t, err)

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "catalog", ev.Type)

	var got catalog.Event
	require.NoError(t, json.Unmarshal([]byte(ev.Data), &got))
	assert.Equal(t, domain.Automations, got.Catalog)
	assert.Equal(t, catalog.OpAdd, got.Op)
	assert.Equal(t, "welcome", got.ID)
}

func TestEvents_CloseEndsOpenStreams(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/catalog/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	dec := stream.NewDecoder(bufio.NewReader(resp.Body))
	_, err = dec.Next()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	f.streams.Close()

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "shutdown", ev.Type)
	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
	require.Eventually(t, func() bool { return f.streams.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	w := f.do(t, http.MethodGet, "/api/catalog/events", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEvents_UnknownCatalog(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/catalog/events?catalog=leads", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
