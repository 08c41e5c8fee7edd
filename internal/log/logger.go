package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	config "github.com/thirdweb-dev/eth-ingest/configs"
)

const component = "eth-ingest"

// InitLogger replaces the zerolog global logger with one built from config.Cfg.Log.
func InitLogger() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, known := Level(config.Cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	log.Logger = New(os.Stderr, config.Cfg.Log)
	if !known {
		log.Warn().Str("level", config.Cfg.Log.Level).Msg("Unknown log level, using info")
	}
}

// New builds a logger writing to w. Every event carries the component name and caller;
// with Prettify set the output is human readable instead of JSON.
func New(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	level, _ := Level(cfg.Level)
	if cfg.Prettify {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Caller().
		Logger()
}

// Level maps a configured level name to a zerolog level. Blank means info; an
// unknown name also falls back to info and reports false.
func Level(name string) (zerolog.Level, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return zerolog.InfoLevel, true
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return level, true
}
