package logging

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger.
// level is one of trace, debug, info, warn, error (default: info).
// format "json" writes JSON lines to stderr; anything else uses the console writer.
func Init(level, format string) {
	InitWriter(os.Stderr, level, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level, format string) {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
}

// Startup emits one event describing how the process was configured.
// Only non-sensitive values belong in settings.
func Startup(name string, settings map[string]string) {
	cfg := zerolog.Dict()
	for k, v := range settings {
		cfg = cfg.Str(k, v)
	}
	log.Info().
		Str("component", name).
		Str("goVersion", runtime.Version()).
		Str("logLevel", zerolog.GlobalLevel().String()).
		Dict("config", cfg).
		Msg("Startup complete")
}
