package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/manyblack/studio/internal/config"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/pkg/domain"
)

// NewLogger builds the process logger from the log settings. The returned func flushes and
// closes the log file, if any.
func NewLogger(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File == "" {
		return logging.New(level), func() error { return nil }, nil
	}
	return logging.NewWithFile(cfg.File, level)
}

// Explain turns an error into the one line shown to the user.
func Explain(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("%v (not found, see `list`)", err)
	case errors.Is(err, domain.ErrInFlight):
		return "a simulation is already running; wait for it to finish"
	default:
		return err.Error()
	}
}

// Fatal prints err and exits with status 1.
func Fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", Explain(err))
	os.Exit(1)
}
