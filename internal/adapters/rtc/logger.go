package rtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loggerFactory routes pion's internal logs into the global zerolog logger.
type loggerFactory struct {
	level zerolog.Level
}

// NewLoggerFactory returns a pion LoggerFactory that drops everything below
// level.
func NewLoggerFactory(level zerolog.Level) logging.LoggerFactory {
	return loggerFactory{level: level}
}

func (f loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	l := log.With().Str("module", "pion").Str("scope", scope).Logger().Level(f.level)
	return zlogger{l: l}
}

type zlogger struct {
	l zerolog.Logger
}

func (z zlogger) Trace(msg string)                  { z.l.Trace().Msg(msg) }
func (z zlogger) Tracef(format string, args ...any) { z.l.Trace().Msgf(format, args...) }
func (z zlogger) Debug(msg string)                  { z.l.Debug().Msg(msg) }
func (z zlogger) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z zlogger) Info(msg string)                   { z.l.Info().Msg(msg) }
func (z zlogger) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z zlogger) Warn(msg string)                   { z.l.Warn().Msg(msg) }
func (z zlogger) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z zlogger) Error(msg string)                  { z.l.Error().Msg(msg) }
func (z zlogger) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }
