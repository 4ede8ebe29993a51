// Package logger re-exports the eigensdk logger so wallet components share one
// logging interface without importing sdklogging directly.
package logger

import (
	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
)

type Logger = sdklogging.Logger

// New builds a zap backed logger. Development mode logs at debug level in
// console format.
func New(development bool) (Logger, error) {
	if development {
		return sdklogging.NewZapLogger(sdklogging.Development)
	}
	return sdklogging.NewZapLogger(sdklogging.Production)
}

// noop discards everything. Components fall back to it when the caller did not
// configure a logger.
type noop struct{}

func (l *noop) Info(msg string, keysAndValues ...interface{})  {}
func (l *noop) Infof(format string, args ...interface{})       {}
func (l *noop) Debug(msg string, keysAndValues ...interface{}) {}
func (l *noop) Debugf(format string, args ...interface{})      {}
func (l *noop) Error(msg string, keysAndValues ...interface{}) {}
func (l *noop) Errorf(format string, args ...interface{})      {}
func (l *noop) Warn(msg string, keysAndValues ...interface{})  {}
func (l *noop) Warnf(format string, args ...interface{})       {}
func (l *noop) Fatal(msg string, keysAndValues ...interface{}) {}
func (l *noop) Fatalf(format string, args ...interface{})      {}
func (l *noop) With(keysAndValues ...interface{}) Logger       { return l }
func (l *noop) WithComponent(componentName string) Logger      { return l }
func (l *noop) WithName(name string) Logger                    { return l }
func (l *noop) WithServiceName(serviceName string) Logger      { return l }
func (l *noop) WithHostName(hostName string) Logger            { return l }
func (l *noop) Sync() error                                    { return nil }

func NewNoOpLogger() Logger {
	return &noop{}
}

// EnsureLogger returns l, or a no-op logger when l is nil.
func EnsureLogger(l Logger) Logger {
	if l == nil {
		return NewNoOpLogger()
	}
	return l
}
