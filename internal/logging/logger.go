package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// standardKeys renames "error" to "err" so every handler logs failures under one key.
func standardKeys(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

// New creates a configured application logger.
// It writes to Stderr so stdout stays free for command output and JSON.
func New(level slog.Level) *slog.Logger {
	return NewWithWriters(os.Stderr, nil, level)
}

// NewWithFile logs text to stderr and JSON lines to path.
// The returned cleanup closes the file. If the file cannot be opened the logger falls back
// to stderr only and the error is returned alongside it.
func NewWithFile(path string, level slog.Level) (*slog.Logger, func() error, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return New(level), func() error { return nil }, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewWithWriters(os.Stderr, file, level), file.Close, nil
}

// NewWithWriters fans out to a text handler on stderr and, when file is not nil, a JSON
// handler on file.
func NewWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: standardKeys}
	text := slog.NewTextHandler(stderr, opts)
	if file == nil {
		return slog.New(text)
	}
	return slog.New(slogmulti.Fanout(text, slog.NewJSONHandler(file, opts)))
}

// ParseLevel maps debug|info|warn|error to a slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
