package sagatx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

// Logger is the logging capability the engine and the default error handler
// depend on.
type Logger interface {
	Log(msg string)
	Error(msg string, err error)
	Warn(msg string)
	Debug(msg string)
}

const (
	logPrefix   = "[Saga] "
	errorPrefix = "[Saga Error] "
	warnPrefix  = "[Saga Warning] "
	debugPrefix = "[Saga Debug] "
)

// DefaultLogger writes tagged JSON lines with zerolog. Log and Debug go to the
// standard stream, Error and Warn to the error stream.
type DefaultLogger struct {
	out    zerolog.Logger
	errOut zerolog.Logger
}

// NewDefaultLogger logs to os.Stdout and os.Stderr.
func NewDefaultLogger() *DefaultLogger {
	return NewLogger(os.Stdout, os.Stderr)
}

// NewLogger logs to the given writers. A nil writer falls back to the
// matching standard stream.
func NewLogger(out, errOut io.Writer) *DefaultLogger {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &DefaultLogger{
		out:    newZerolog(out),
		errOut: newZerolog(errOut),
	}
}

func newZerolog(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("component", "saga").
		Logger()
}

// WithLevel returns a copy of the logger that drops messages below level.
func (l *DefaultLogger) WithLevel(level zerolog.Level) *DefaultLogger {
	return &DefaultLogger{
		out:    l.out.Level(level),
		errOut: l.errOut.Level(level),
	}
}

func (l *DefaultLogger) Log(msg string) {
	l.out.Info().Msg(logPrefix + msg)
}

func (l *DefaultLogger) Error(msg string, err error) {
	l.errOut.Error().Err(err).Msg(errorPrefix + msg)
}

func (l *DefaultLogger) Warn(msg string) {
	l.errOut.Warn().Msg(warnPrefix + msg)
}

func (l *DefaultLogger) Debug(msg string) {
	l.out.Debug().Msg(debugPrefix + msg)
}

// ZapLogger adapts a *zap.Logger to Logger.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger wraps logger. A nil logger discards everything.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.Named("saga")}
}

func (l *ZapLogger) Log(msg string) {
	l.logger.Info(msg)
}

func (l *ZapLogger) Error(msg string, err error) {
	l.logger.Error(msg, zap.Error(err))
}

func (l *ZapLogger) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *ZapLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

// NopLogger discards all messages.
type NopLogger struct{}

func (NopLogger) Log(string)          {}
func (NopLogger) Error(string, error) {}
func (NopLogger) Warn(string)         {}
func (NopLogger) Debug(string)        {}
