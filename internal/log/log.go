// Package log provides centralized logging functionality using zap logger.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

func ensure() {
	if baseLogger == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
}

// GetZapLogger returns the base zap logger for cases where it's needed (like GORM)
func GetZapLogger() *zap.Logger {
	ensure()
	return baseLogger
}

// GetSugaredLogger returns the sugared logger instance
func GetSugaredLogger() *zap.SugaredLogger {
	ensure()
	return log
}

// Named returns a child logger tagged with a component field. The caller
// skip used by the package-level helpers is removed so call sites report
// correctly.
func Named(component string) *zap.SugaredLogger {
	ensure()
	return baseLogger.WithOptions(zap.AddCallerSkip(-1)).Sugar().With("component", component)
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// Package-level convenience functions
func Debug(args ...interface{}) {
	ensure()
	log.Debug(args...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Debugw(msg, keysAndValues...)
}

func Info(args ...interface{}) {
	ensure()
	log.Info(args...)
}

func Infof(template string, args ...interface{}) {
	ensure()
	log.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Infow(msg, keysAndValues...)
}

func Warn(args ...interface{}) {
	ensure()
	log.Warn(args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Warnw(msg, keysAndValues...)
}

func Error(args ...interface{}) {
	ensure()
	log.Error(args...)
}

func Errorf(template string, args ...interface{}) {
	ensure()
	log.Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Errorw(msg, keysAndValues...)
}

func Fatal(args ...interface{}) {
	ensure()
	log.Fatal(args...)
	os.Exit(1)
}

func Fatalf(template string, args ...interface{}) {
	ensure()
	log.Fatalf(template, args...)
	os.Exit(1)
}
