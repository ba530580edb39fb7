package ctxlogger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// ContextHandler is a slog.Handler that adds the attributes stored in the
// record's context with AppendCtx to every record it handles.
type ContextHandler struct {
	Handler slog.Handler
}

func (h ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Handler.Enabled(ctx, level)
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// AppendCtx returns a context carrying attr in addition to any attributes
// already stored by previous AppendCtx calls.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if v, ok := parent.Value(ctxKey{}).([]slog.Attr); ok {
		attrs := make([]slog.Attr, len(v), len(v)+1)
		copy(attrs, v)
		return context.WithValue(parent, ctxKey{}, append(attrs, attr))
	}

	return context.WithValue(parent, ctxKey{}, []slog.Attr{attr})
}
