package whatsapp

import (
	"fmt"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// zapLogger lets whatsmeow log through zap.
type zapLogger struct {
	log *zap.Logger
}

func newZapLogger(log *zap.Logger) waLog.Logger {
	return &zapLogger{log: log}
}

func (l *zapLogger) Warnf(msg string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(msg, args...))
}

func (l *zapLogger) Errorf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

func (l *zapLogger) Infof(msg string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(msg, args...))
}

func (l *zapLogger) Debugf(msg string, args ...interface{}) {
	if !l.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	l.log.Debug(fmt.Sprintf(msg, args...))
}

func (l *zapLogger) Sub(module string) waLog.Logger {
	return &zapLogger{log: l.log.Named(module)}
}
