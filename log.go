package nifti

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

/*
===============================================================================
    Logging
===============================================================================
*/

var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var sugar = newPackageLogger()

func encoderConfig(colour bool) zapcore.EncoderConfig {
	encodeLevel := zapcore.LowercaseLevelEncoder
	if colour {
		encodeLevel = zapcore.LowercaseColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func normaliseWriters(writers ...zapcore.WriteSyncer) zapcore.WriteSyncer {
	if len(writers) == 1 {
		return writers[0]
	}
	return zapcore.NewMultiWriteSyncer(writers...)
}

// NewJSONLogger creates a `zap.SugaredLogger` configured for JSON output to `writers`
func NewJSONLogger(writers ...zapcore.WriteSyncer) *zap.SugaredLogger {
	writer := normaliseWriters(writers...)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), writer, logLevel)
	return zap.New(core).Sugar()
}

// NewConsoleLogger creates a `zap.SugaredLogger` configured for human-readable output to `writers`
func NewConsoleLogger(writers ...zapcore.WriteSyncer) *zap.SugaredLogger {
	writer := normaliseWriters(writers...)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), writer, logLevel)
	return zap.New(core).Sugar()
}

func newPackageLogger() *zap.SugaredLogger {
	return NewConsoleLogger(zapcore.Lock(os.Stderr))
}

// SetLoggingLevel takes a level string and accordingly adjusts the shared
// logger level.
// Supported values: "debug", "info", "warn", "error",
// and "disabled" / "none" / "off" to silence all output.
func SetLoggingLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.SetLevel(zapcore.DebugLevel)
	case "info":
		logLevel.SetLevel(zapcore.InfoLevel)
	case "warn":
		logLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		logLevel.SetLevel(zapcore.ErrorLevel)
	case "disabled", "none", "off":
		logLevel.SetLevel(zapcore.FatalLevel)
	}
}

// Debugf logs to the shared logger.
// Arguments are handled in the manner of fmt.Printf
func Debugf(format string, v ...interface{}) {
	sugar.Debugf(format, v...)
}

// Debug logs to the shared logger.
// Arguments are handled in the manner of fmt.Print
func Debug(v ...interface{}) {
	sugar.Debug(v...)
}

// Infof logs to the shared logger.
// Arguments are handled in the manner of fmt.Printf
func Infof(format string, v ...interface{}) {
	sugar.Infof(format, v...)
}

// Info logs to the shared logger.
// Arguments are handled in the manner of fmt.Print
func Info(v ...interface{}) {
	sugar.Info(v...)
}

// Warnf logs to the shared logger.
// Arguments are handled in the manner of fmt.Printf
func Warnf(format string, v ...interface{}) {
	sugar.Warnf(format, v...)
}

// Warn logs to the shared logger.
// Arguments are handled in the manner of fmt.Print
func Warn(v ...interface{}) {
	sugar.Warn(v...)
}

// Errorf logs to the shared logger.
// Arguments are handled in the manner of fmt.Printf
func Errorf(format string, v ...interface{}) {
	sugar.Errorf(format, v...)
}

// Error logs to the shared logger.
// Arguments are handled in the manner of fmt.Print
func Error(v ...interface{}) {
	sugar.Error(v...)
}
