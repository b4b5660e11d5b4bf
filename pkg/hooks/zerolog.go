package hooks

import "github.com/rs/zerolog"

// ZerologLogger adapts a zerolog.Logger to the Logger interface so a host
// can pass its existing logger straight through without writing its own
// shim.
type ZerologLogger struct {
	Logger zerolog.Logger
}

// NewZerologLogger wraps l.
func NewZerologLogger(l zerolog.Logger) ZerologLogger {
	return ZerologLogger{Logger: l}
}

func (z ZerologLogger) Debug(msg MessageThunk) {
	if z.Logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	z.Logger.Debug().Msg(msg())
}

func (z ZerologLogger) Info(msg MessageThunk) {
	if z.Logger.GetLevel() > zerolog.InfoLevel {
		return
	}
	z.Logger.Info().Msg(msg())
}

func (z ZerologLogger) Warn(msg MessageThunk, cause error) {
	if z.Logger.GetLevel() > zerolog.WarnLevel {
		return
	}
	z.Logger.Warn().Err(cause).Msg(msg())
}

func (z ZerologLogger) Error(msg MessageThunk, cause error) {
	if z.Logger.GetLevel() > zerolog.ErrorLevel {
		return
	}
	z.Logger.Error().Err(cause).Msg(msg())
}
