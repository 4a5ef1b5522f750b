package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/authgate/internal/authctx"
	"github.com/ErlanBelekov/authgate/internal/requestid"
)

// contextAttrs pulls request-scoped attributes out of a context. Each
// extractor returns ok=false when its value is absent.
var contextAttrs = []func(ctx context.Context) (slog.Attr, bool){
	func(ctx context.Context) (slog.Attr, bool) {
		id := requestid.FromContext(ctx)
		return slog.String("request_id", id), id != ""
	},
	func(ctx context.Context) (slog.Attr, bool) {
		claims, ok := authctx.ClaimsFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Int64("user_id", claims.Subject), true
	},
}

// ContextHandler wraps an slog.Handler and adds request_id and, for
// authenticated requests, user_id to every record logged with a context.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, extract := range contextAttrs {
		if attr, ok := extract(ctx); ok {
			r.AddAttrs(attr)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
