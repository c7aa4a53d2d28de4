// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output. Console output is human-friendly; otherwise JSON.
func Setup(level string, console bool) {
	SetupWriter(os.Stderr, level, console)
}

func SetupWriter(w io.Writer, level string, console bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if console {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel falls back to info on anything it does not know.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}
