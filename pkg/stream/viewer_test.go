package stream_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeEvent(w http.ResponseWriter, stage string, n int) {
	fmt.Fprintf(w, "data: {\"stage\":%q,\"event\":\"e%d\",\"timestamp\":%d.5,\"data\":{\"n\":%d}}\n\n", stage, n, 1700000000+n, n)
	w.(http.Flusher).Flush()
}

func waitDone(t *testing.T, v *stream.Viewer) {
	t.Helper()
	select {
	case <-v.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close")
	}
}

func stages(events []domain.LogEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Event
	}
	return out
}

func TestViewer_ArrivalOrderNoDedup(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: ping\ndata: connected\n\n")
		writeEvent(w, "start", 2)
		writeEvent(w, "rag", 1)
		writeEvent(w, "rag", 1)
	}))
	defer srv.Close()

	var handled int
	v := stream.NewViewer(stream.WithHandler(func(domain.LogEvent) { handled++ }))
	require.NoError(t, v.Open(context.Background(), srv.URL))
	waitDone(t, v)

	assert.NoError(t, v.Err(), "server ending the stream is not an error")
	assert.Equal(t, []string{"e2", "e1", "e1"}, stages(v.Events()))
	assert.Equal(t, 3, handled)
	assert.Equal(t, 1700000002.5, v.Events()[0].Timestamp)
}

func TestViewer_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, "start", 1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	v := stream.NewViewer(stream.WithTimeout(150 * time.Millisecond))
	start := time.Now()
	require.NoError(t, v.Open(context.Background(), srv.URL))
	waitDone(t, v)

	assert.ErrorIs(t, v.Err(), stream.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Len(t, v.Events(), 1)
}

func TestViewer_DecodeErrorCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, "start", 1)
		fmt.Fprint(w, "data: {not json\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	v := stream.NewViewer()
	require.NoError(t, v.Open(context.Background(), srv.URL))
	waitDone(t, v)

	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), "decode")
	assert.Len(t, v.Events(), 1)
}

func TestViewer_PauseDropsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	next := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 1; i <= 3; i++ {
			writeEvent(w, "stage", i)
			select {
			case <-next:
			case <-r.Context().Done():
				return
			}
		}
	}))
	defer srv.Close()

	v := stream.NewViewer()
	require.NoError(t, v.Open(context.Background(), srv.URL))
	defer v.Close()

	require.Eventually(t, func() bool { return len(v.Events()) == 1 }, 2*time.Second, 5*time.Millisecond)

	v.Pause()
	next <- struct{}{}
	require.Eventually(t, func() bool { return v.Dropped() == 1 }, 2*time.Second, 5*time.Millisecond)

	v.Resume()
	next <- struct{}{}
	require.Eventually(t, func() bool { return len(v.Events()) == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"e1", "e3"}, stages(v.Events()))
	select {
	case <-v.Done():
		t.Fatal("pausing must not close the stream")
	default:
	}
	next <- struct{}{}
	waitDone(t, v)
}

func TestViewer_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, "start", 1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	v := stream.NewViewer()
	require.NoError(t, v.Open(context.Background(), srv.URL))
	require.Eventually(t, func() bool { return len(v.Events()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, v.Close())
	require.NoError(t, v.Close())
	assert.NoError(t, v.Err())

	assert.Error(t, v.Open(context.Background(), srv.URL), "viewers are single use")
}

func TestViewer_OpenFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"lead not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	v := stream.NewViewer()
	err := v.Open(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead not found")
	waitDone(t, v)
	assert.Equal(t, err, v.Err())

	never := stream.NewViewer()
	assert.NoError(t, never.Close())
	waitDone(t, never)
}
