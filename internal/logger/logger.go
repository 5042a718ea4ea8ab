package logger

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Log is usable before Init so packages can log from tests.
var Log = logrus.New()

type requestIDKey struct{}

// Init configures the global logger. Production gets JSON, everything else text.
func Init(level, env string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if env == "production" {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	SetTextFormatter()
}

func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Silence drops all output. Used by tests.
func Silence() {
	Log.SetOutput(io.Discard)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns an entry tagged with the request id carried by ctx, if any.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Log)
	if id := RequestID(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
