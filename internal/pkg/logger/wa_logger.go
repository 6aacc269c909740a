package logger

import (
	"fmt"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WALogger routes whatsmeow's printf-style logs into zap.
type WALogger struct {
	logger *zap.Logger
	module string
	level  zapcore.Level
}

var _ waLog.Logger = (*WALogger)(nil)

// NewWALogger builds the adapter. minLevel is one of DEBUG, INFO, WARN, ERROR.
func NewWALogger(base *ZapLogger, module, minLevel string) *WALogger {
	return &WALogger{
		logger: base.Zap().WithOptions(zap.AddCallerSkip(1)),
		module: module,
		level:  parseWALevel(minLevel),
	}
}

func (w *WALogger) Debugf(msg string, args ...interface{}) {
	w.log(zapcore.DebugLevel, msg, args)
}

func (w *WALogger) Infof(msg string, args ...interface{}) {
	w.log(zapcore.InfoLevel, msg, args)
}

func (w *WALogger) Warnf(msg string, args ...interface{}) {
	w.log(zapcore.WarnLevel, msg, args)
}

func (w *WALogger) Errorf(msg string, args ...interface{}) {
	w.log(zapcore.ErrorLevel, msg, args)
}

func (w *WALogger) Sub(module string) waLog.Logger {
	return &WALogger{
		logger: w.logger,
		module: w.module + "/" + module,
		level:  w.level,
	}
}

func (w *WALogger) log(level zapcore.Level, msg string, args []interface{}) {
	if level < w.level {
		return
	}
	if ce := w.logger.Check(level, fmt.Sprintf(msg, args...)); ce != nil {
		ce.Write(zap.String("module", w.module))
	}
}

func parseWALevel(s string) zapcore.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}
