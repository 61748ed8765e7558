package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// Init installs the global zap logger. With debug set it logs colored
// development output to stderr, keeping stdout clean for streamed
// responses; otherwise logging is a no-op.
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

// Logger returns the global sugared logger
func Logger() *zap.SugaredLogger {
	if logger == nil {
		Init(false)
	}
	return logger
}
