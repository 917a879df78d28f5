// Package logging builds the zerolog logger shared by the CLI, the HTTP
// server, and the background inbox poller.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// File, when set, receives a JSON copy of every entry with rotation.
	File string

	// Console is the human-facing writer. Defaults to os.Stderr.
	Console io.Writer
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing to the console, and to a rotated file when
// opts.File is set. A TTY console gets the pretty console writer; anything
// else gets JSON. The returned closer releases the log file.
func New(opts Options) (zerolog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	console = consoleWriter(console)

	writer := console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 5,
				MaxAge:     30, // days
				Compress:   true,
			}
			writer = zerolog.MultiLevelWriter(console, rotator)
			closer = rotator
		}
	}

	logger := zerolog.New(writer).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()

	log.Logger = logger
	return logger, closer
}

// consoleWriter wraps w in a zerolog.ConsoleWriter when it is a terminal
// and NO_COLOR is unset.
func consoleWriter(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
