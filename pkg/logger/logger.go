package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with env-driven setup.
type Logger struct {
	*logrus.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger. Safe to call more than once;
// packages that log before main runs get a default instance.
func Init() {
	once.Do(func() {
		instance = newLogger()
	})
}

func newLogger() *Logger {
	logger := &Logger{Logger: logrus.New()}

	logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	logger.SetOutput(os.Stdout)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	return logger
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func get() *Logger {
	Init()
	return instance
}

// Global logging helpers.

func Debug(args ...interface{}) {
	get().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Error(args ...interface{}) {
	get().Error(args...)
}

func Fatal(args ...interface{}) {
	get().Fatal(args...)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return get().WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return get().WithError(err)
}

// LogError logs an error with structured context.
func LogError(err error, context string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"error":   err.Error(),
		"context": context,
		"type":    "error_detail",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	get().WithFields(fields).Error("Application Error")
}

// LogChatEvent logs chat lifecycle events.
func LogChatEvent(event, chatID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"chat_id": chatID,
		"user_id": userID,
		"type":    "chat_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	get().WithFields(fields).Info("Chat Event")
}

// LogUserAction logs user actions.
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}
	for k, v := range metadata {
		fields[k] = v
	}
	get().WithFields(fields).Info("User Action")
}
