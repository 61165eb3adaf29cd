package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper around zap's sugared logger so packages can take a
// single concrete type and callers never have to nil-check it.
type Logger struct {
	*zap.SugaredLogger
}

// builds the process logger; verbose switches to debug level with the
// development encoder
func NewLogger(verbose bool) *Logger {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
		cfg.Sampling = nil
	}
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// logger that discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// returns l, or a no-op logger when l is nil
func OrNop(l *Logger) *Logger {
	if l == nil || l.SugaredLogger == nil {
		return Nop()
	}
	return l
}

// child logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: OrNop(l).SugaredLogger.With(args...)}
}

// child logger tagged with a component name
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: OrNop(l).SugaredLogger.Named(name)}
}

// flushes buffered entries; errors from syncing stderr are ignored
func (l *Logger) Close() {
	if l == nil || l.SugaredLogger == nil {
		return
	}
	_ = l.Sync()
}
