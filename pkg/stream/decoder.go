// Package stream reads the backend's simulation log stream.
//
// The backend publishes one server-sent event per pipeline stage, each carrying a JSON
// domain.LogEvent in its data field. Decoder parses the text/event-stream framing and
// Viewer owns one connection: it appends events in arrival order, can be paused and
// closes itself on timeout or on the first error.
package stream

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single SSE line. Stage payloads carry retrieved snippets, so the
// 64KiB bufio.Scanner default is too small.
const maxLineSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Type  string // empty means "message"
	Data  string
	Retry int // milliseconds, zero when not sent
}

// Decoder reads events from a text/event-stream body.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &Decoder{scanner: s}
}

// Next returns the next event. It returns io.EOF once the stream ends; a partially
// received event at the end of the stream is discarded.
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		if line == "" {
			if !hasData {
				// Blank line without data resets the event
				ev = Event{}
				continue
			}
			ev.Data = data.String()
			ev.ID = d.lastID
			return ev, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "event":
			ev.Type = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				ev.Retry = n
			}
		}
	}
	if err := d.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Event{}, errors.New("stream line exceeds 1MiB")
		}
		return Event{}, err
	}
	return Event{}, io.EOF
}
