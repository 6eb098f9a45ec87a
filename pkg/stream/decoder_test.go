package stream_test

import (
	"io"
	"strings"
	"testing"

	"github.com/manyblack/studio/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive comment",
		"event: ping",
		"data: connected",
		"",
		"id: 7",
		"data: {\"stage\":\"start\",",
		"data:\"event\":\"x\"}",
		"",
		"retry: 1500\r",
		"data: crlf\r",
		"\r",
		"",
		"data: trailing without blank line",
	}, "\n")

	dec := stream.NewDecoder(strings.NewReader(body))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, stream.Event{Type: "ping", Data: "connected"}, ev)

	ev, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "7", ev.ID)
	assert.Equal(t, "{\"stage\":\"start\",\n\"event\":\"x\"}", ev.Data)

	ev, err = dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "crlf", ev.Data)
	assert.Equal(t, 1500, ev.Retry)
	assert.Equal(t, "7", ev.ID, "last event id carries over")

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF, "an unterminated event is discarded")
}

func TestDecoder_FieldWithoutColon(t *testing.T) {
	dec := stream.NewDecoder(strings.NewReader("data\n\n"))
	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "", ev.Data)
}
