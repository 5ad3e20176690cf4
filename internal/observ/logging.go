package observ

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logMu  sync.RWMutex
	logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Setup configures the process logger. format is "json" or "console".
func Setup(level, format string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	out := w
	switch format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	logMu.Lock()
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	logMu.Unlock()
	return nil
}

// Logger returns the process logger.
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// Log emits a single info event with the given fields.
func Log(event string, kv map[string]any) {
	l := Logger()
	e := l.Info().Str("event", event)
	if len(kv) > 0 {
		e = e.Fields(kv)
	}
	e.Send()
}
