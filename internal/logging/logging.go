// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"

	"cocotape/internal/config"
)

// ParseLevel maps a configured level name to a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a logger writing text to w and, when cfg.File is set, JSON
// lines to that file. File records carry a run ID so runs appended to the
// same file can be told apart. The returned close func releases the file.
func New(w io.Writer, cfg config.LoggingConfig, debug, verbose bool) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	switch {
	case debug:
		level.Set(slog.LevelDebug)
	case verbose:
		level.Set(slog.LevelInfo)
	default:
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		level.Set(l)
	}

	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(w, opts)}
	closeFn := func() error { return nil }

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileHandler := slog.NewJSONHandler(file, opts).WithAttrs([]slog.Attr{
			slog.String("run", uuid.New().String()),
		})
		handlers = append(handlers, fileHandler)
		closeFn = file.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
