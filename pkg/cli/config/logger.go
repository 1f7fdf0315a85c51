package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

const (
	// LogFormatConsole is the colored human-readable format
	LogFormatConsole = "console"

	// LogFormatJSON is one JSON object per line
	LogFormatJSON = "json"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger holds logger configuration
type Logger struct {
	Level  string
	Format string

	// Writer defaults to stdout
	Writer io.Writer
}

// Flags returns CLI flags for logger configuration
func (c *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &c.Level,
			Sources:     cli.EnvVars("TUBEAUDIO_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       LogFormatConsole,
			Destination: &c.Format,
			Sources:     cli.EnvVars("TUBEAUDIO_LOG_FORMAT"),
		},
	}
}

// Configure configures and returns a logger. Fields tagged
// `masq:"secret"` are redacted in every format.
func (c *Logger) Configure() (*slog.Logger, error) {
	level, ok := logLevels[strings.ToLower(c.Level)]
	if !ok {
		return nil, goerr.New("invalid log level",
			goerr.V("level", c.Level),
			goerr.T(types.ErrTagInvalidConfig))
	}

	w := c.Writer
	if w == nil {
		w = os.Stdout
	}
	filter := masq.New(masq.WithTag("secret"))

	var handler slog.Handler
	switch strings.ToLower(c.Format) {
	case LogFormatConsole:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithColor(w == os.Stdout && !color.NoColor),
			clog.WithReplaceAttr(filter),
		)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		return nil, goerr.New("invalid log format",
			goerr.V("format", c.Format),
			goerr.T(types.ErrTagInvalidConfig))
	}

	return slog.New(handler), nil
}
