// Package logging builds the process slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Output formats
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
	FormatAuto   = "auto"
)

// New returns a logger writing to w. The auto format picks pretty output
// when w is a terminal and JSON otherwise.
func New(format, level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case FormatPretty:
		return slog.New(prettyHandler(w, lvl)), nil
	case FormatAuto, "":
		if isTerminal(w) {
			return slog.New(prettyHandler(w, lvl)), nil
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s (valid: json, pretty, auto)", format)
	}
}

func prettyHandler(w io.Writer, lvl slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	})
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
