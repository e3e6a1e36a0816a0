package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the daemon's own log output. Console output from
// managed processes never goes here; it lives in each console's history.
type Config struct {
	Level      string // debug, info, warn, error
	Dir        string // when set, also log to Dir/consolr.log with rotation
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Setup installs the process-wide slog default: a ColorTextHandler on
// stderr, optionally teeing into a rotating file.
func Setup(c Config) {
	var w io.Writer = os.Stderr
	if c.Dir != "" {
		file := &lj.Logger{
			Filename:   filepath.Join(c.Dir, "consolr.log"),
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
		w = io.MultiWriter(os.Stderr, file)
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	slog.SetDefault(slog.New(NewColorTextHandler(w, opts, true)))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
