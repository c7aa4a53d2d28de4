package logging

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PionFactory routes pion's internal logs into zerolog with the scope as the module.
type PionFactory struct {
	level zerolog.Level
}

var _ logging.LoggerFactory = PionFactory{}

// NewPionFactory keeps pion messages at or above level. pion is chatty at debug.
func NewPionFactory(level zerolog.Level) PionFactory {
	return PionFactory{level: level}
}

func (f PionFactory) NewLogger(scope string) logging.LeveledLogger {
	l := log.Logger.Level(f.level).With().Str("module", "pion."+scope).Logger()
	return pionLogger{log: l}
}

type pionLogger struct {
	log zerolog.Logger
}

func (p pionLogger) Trace(msg string) { p.log.Trace().Msg(msg) }

func (p pionLogger) Tracef(format string, args ...interface{}) { p.log.Trace().Msgf(format, args...) }

func (p pionLogger) Debug(msg string) { p.log.Debug().Msg(msg) }

func (p pionLogger) Debugf(format string, args ...interface{}) { p.log.Debug().Msgf(format, args...) }

func (p pionLogger) Info(msg string) { p.log.Info().Msg(msg) }

func (p pionLogger) Infof(format string, args ...interface{}) { p.log.Info().Msgf(format, args...) }

func (p pionLogger) Warn(msg string) { p.log.Warn().Msg(msg) }

func (p pionLogger) Warnf(format string, args ...interface{}) { p.log.Warn().Msgf(format, args...) }

func (p pionLogger) Error(msg string) { p.log.Error().Msg(msg) }

func (p pionLogger) Errorf(format string, args ...interface{}) { p.log.Error().Msgf(format, args...) }
