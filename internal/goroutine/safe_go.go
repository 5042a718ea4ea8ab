package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

// Logger is satisfied by *logrus.Logger and *logrus.Entry.
type Logger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

// RecoveryHandler keeps a panic in a background goroutine from killing the process.
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(l Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: l}
}

func (rh *RecoveryHandler) SafeGo(name string, fn func()) {
	go func() {
		defer rh.handlePanic(name)
		fn()
	}()
}

func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer rh.handlePanic(name)
		fn(ctx)
	}()
}

// handlePanic must be deferred directly so recover sees the panic.
func (rh *RecoveryHandler) handlePanic(name string) {
	if r := recover(); r != nil {
		rh.logger.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("panic recovered")
	}
}

var defaultHandler = NewRecoveryHandler(logger.Log)

func SafeGo(name string, fn func()) {
	defaultHandler.SafeGo(name, fn)
}

func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	defaultHandler.SafeGoWithContext(ctx, name, fn)
}
