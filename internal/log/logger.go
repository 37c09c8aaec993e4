package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// Init installs the process-wide zap logger. Debug mode gets a colored
// development console encoder; otherwise logging is a no-op so the
// interactive prompt stays clean.
func Init(debug bool) {
	var l *zap.Logger

	if debug {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		config.DisableStacktrace = true

		var err error
		l, err = config.Build()
		if err != nil {
			panic(err)
		}
	} else {
		l = zap.NewNop()
	}

	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l)
	logger = l.Sugar()
}

// Get returns the global sugared logger, installing the no-op logger if
// Init was never called.
func Get() *zap.SugaredLogger {
	if logger == nil {
		Init(false)
	}
	return logger
}

// Sync flushes buffered log entries on shutdown.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
