// Package logger wraps slog with the handler-selection logic the daemon's
// core.LoggingConfig drives: level, text-vs-JSON format, and stdout/file
// output, all sourced from one place so cmd/kpald and every engine
// subsystem log through the same configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger embeds *slog.Logger so callers get Info/Error/Debug/Warn directly,
// plus WithComponent for tagging log lines by subsystem (engine, rest,
// plugin) without every caller repeating the attribute by hand.
type Logger struct {
	*slog.Logger
}

// Config mirrors core.LoggingConfig's fields; New never reads YAML or env
// itself, so this struct is the one seam between config loading and the
// handler slog actually writes through.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json"
	Output string // "stdout", "file"
	File   string // path to log file, only read when Output == "file"
}

var globalLogger *Logger

// New builds a Logger from config. An unrecognized Level defaults to info;
// an unrecognized Format defaults to text; a file Output that fails to open
// falls back to stdout rather than aborting construction, since a daemon
// that can't start because its log file is unwritable is a worse failure
// mode than one that logs to stdout instead.
func New(config Config) *Logger {
	var handler slog.Handler
	var level slog.Level

	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	writer := os.Stdout
	if config.Output == "file" && config.File != "" {
		if f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			writer = f
		}
	}

	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	l := &Logger{
		Logger: slog.New(handler),
	}

	if globalLogger == nil {
		globalLogger = l
	}

	return l
}

// Global returns the process-wide logger, constructing a default info/text
// one on first use. The first Logger built by New becomes the global one;
// in cmd/kpald that is the engine's own logger, built by core.NewEngine once
// config is loaded.
func Global() *Logger {
	if globalLogger == nil {
		return New(Config{Level: "info", Format: "text"})
	}
	return globalLogger
}

// SetGlobal replaces the process-wide logger, used once config is loaded
// and a properly-configured Logger exists.
func SetGlobal(l *Logger) {
	globalLogger = l
}

// WithComponent returns a Logger that annotates every line with
// component=name, so a library load failure and an HTTP 500 are
// distinguishable in a shared log stream without parsing the message text.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}
