// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel accepts slog level names ("debug", "info", "warn", "error").
// Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	level := slog.LevelInfo
	if s = strings.TrimSpace(s); s == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level: %s", s)
	}
	return level, nil
}

// New builds a logger: colored tint output with source locations at debug
// level, JSON otherwise.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if level <= slog.LevelDebug {
		replacer := func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = trimSourcePath(source.File)
				}
			}
			if err, ok := a.Value.Any().(error); ok {
				aErr := tint.Err(err)
				aErr.Key = a.Key
				return aErr
			}
			return a
		}
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.TimeOnly,
			ReplaceAttr: replacer,
			AddSource:   true,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup installs the default logger for the named level.
func Setup(levelName string) error {
	level, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	if level <= slog.LevelDebug {
		slog.SetDefault(New(os.Stdout, level))
		slog.Debug("debug logging enabled")
		return nil
	}
	slog.SetDefault(New(os.Stderr, level))
	return nil
}

// trimSourcePath keeps the path from internal/ or cmd/ onward.
func trimSourcePath(file string) string {
	for _, dir := range []string{"/internal/", "/cmd/"} {
		if idx := strings.LastIndex(file, dir); idx != -1 {
			return file[idx+1:]
		}
	}
	return file
}
