// Package logging builds the slog loggers used by the strand CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/adalundhe/strand/core/config"
)

// New returns a logger writing to w at cfg.Level. Format "auto" selects text
// for terminals and JSON otherwise.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch resolveFormat(cfg.Format, w) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func resolveFormat(format string, w io.Writer) string {
	if format != "" && format != "auto" {
		return format
	}
	if isTerminal(w) {
		return "text"
	}
	return "json"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
