// Package logger configures the global zerolog logger used by every herd package.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents log levels
type LogLevel string

// Log levels
const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	// Level is the log level: debug, info, warn, error
	Level LogLevel
	// Format can be "json" or "console"
	Format string
	// ConsoleTimeFormat is the time format for console output
	ConsoleTimeFormat string
	// NoColor disables colored console output
	NoColor bool
	// Out defaults to stderr so stdout stays free for command output
	Out io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:             LogInfo,
		Format:            "console",
		ConsoleTimeFormat: time.Kitchen,
	}
}

// Level maps l to a zerolog level, falling back to info.
func (l LogLevel) Level() zerolog.Level {
	switch l {
	case LogDebug:
		return zerolog.DebugLevel
	case LogInfo:
		return zerolog.InfoLevel
	case LogWarn:
		return zerolog.WarnLevel
	case LogError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global logger
func Setup(config Config) {
	zerolog.SetGlobalLevel(config.Level.Level())

	out := config.Out
	if out == nil {
		out = os.Stderr
	}

	if config.Format == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}

	timeFormat := config.ConsoleTimeFormat
	if timeFormat == "" {
		timeFormat = time.Kitchen
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: timeFormat,
		NoColor:    config.NoColor,
	}).With().Timestamp().Logger()
}
