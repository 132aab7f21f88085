package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the global slog logger from the logging.format and
// logging.level config values (TLG_LOGGING_FORMAT / TLG_LOGGING_LEVEL).
//
// format "json" selects the JSONHandler, anything else the TextHandler.
// level is one of "debug", "info", "warn", "error" (case-insensitive),
// defaulting to "info". At debug level, records include the source location.
//
// Installing the result as the default means every slog call in the server,
// from the request logger down to the background usage writes, uses it without
// carrying a *slog.Logger around.
func SetupLogger(format, level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // include file:line only when debugging
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
