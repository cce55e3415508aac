// Package logx holds the logging helpers shared by the request layer.
package logx

import (
	"context"

	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/host"
)

type contextKey int

const (
	requestKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithRequest annotates the logger with the request id unless the context
// logger already carries it.
func WithRequest(ctx context.Context, requestID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if requestID == "" {
		return log
	}
	if current, ok := ctx.Value(requestKey).(string); ok && current == requestID {
		return log
	}
	return log.With("request", requestID)
}

// WithTab annotates the logger with tab and window ids.
func WithTab(log pslog.Logger, tab host.Tab) pslog.Logger {
	if tab.ID > 0 {
		log = log.With("tab", tab.ID)
	}
	if tab.WindowID > 0 {
		log = log.With("window", tab.WindowID)
	}
	return log
}

// WithCategory annotates the logger with the resolved category.
func WithCategory(log pslog.Logger, category string) pslog.Logger {
	if category != "" {
		log = log.With("category", category)
	}
	return log
}

// ContextWithRequestLogger attaches a request-scoped logger to the context.
func ContextWithRequestLogger(ctx context.Context, requestID string) context.Context {
	log := WithRequest(ctx, requestID)
	ctx = pslog.ContextWithLogger(ctx, log)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// RequestID returns the request id stored on the context.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestKey).(string)
	return id
}
