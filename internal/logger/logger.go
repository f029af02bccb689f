// Package logger wraps logrus with request-scoped fields, matching the
// context-threaded logging convention used throughout the teacher codebase
// (logger.GetLogger(ctx), logger.Info(ctx, ...), logger.CloneContext).
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey int

const fieldsKey ctxKey = iota

// WithRequestID attaches a request_id field to every log line derived from
// the returned context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, "request_id", requestID)
}

// WithSessionID attaches a session_id field to every log line derived from
// the returned context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withField(ctx, "session_id", sessionID)
}

func withField(ctx context.Context, key string, value interface{}) context.Context {
	fields := logrus.Fields{}
	for k, v := range fieldsFromContext(ctx) {
		fields[k] = v
	}
	fields[key] = value
	return context.WithValue(ctx, fieldsKey, fields)
}

func fieldsFromContext(ctx context.Context) logrus.Fields {
	if v, ok := ctx.Value(fieldsKey).(logrus.Fields); ok {
		return v
	}
	if entry, ok := ctx.Value(fieldsKey).(*logrus.Entry); ok {
		return entry.Data
	}
	return logrus.Fields{}
}

// CloneContext detaches a context's deadline/cancellation while preserving
// its logging fields, for use in goroutines that must outlive the caller's
// own cancellation (e.g. cache population after a client disconnects).
func CloneContext(ctx context.Context) context.Context {
	fields := fieldsFromContext(ctx)
	out := context.Background()
	if len(fields) > 0 {
		out = context.WithValue(out, fieldsKey, fields)
	}
	return out
}

// GetLogger returns a logrus entry pre-populated with this context's fields.
func GetLogger(ctx context.Context) *logrus.Entry {
	fields := fieldsFromContext(ctx)
	if len(fields) == 0 {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logrus.WithFields(fields)
}

func Info(ctx context.Context, args ...interface{})  { GetLogger(ctx).Info(args...) }
func Warn(ctx context.Context, args ...interface{})  { GetLogger(ctx).Warn(args...) }
func Error(ctx context.Context, args ...interface{}) { GetLogger(ctx).Error(args...) }

func Infof(ctx context.Context, format string, args ...interface{})  { GetLogger(ctx).Infof(format, args...) }
func Warnf(ctx context.Context, format string, args ...interface{})  { GetLogger(ctx).Warnf(format, args...) }
func Errorf(ctx context.Context, format string, args ...interface{}) { GetLogger(ctx).Errorf(format, args...) }

// Init configures the package-wide logrus instance. Call once at startup.
func Init(level string, jsonFormat bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if jsonFormat {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
