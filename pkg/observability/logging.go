package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/reservoir/pkg/pool"
)

// WithTrace adds the trace and span ids of the span in ctx, if any.
func WithTrace(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// LogEvents logs every lifecycle notification of p at level. The returned
// function detaches the logger again.
//
// Callbacks run under the pool's lock when p is a pool.Synchronized, so the
// entries carry only the entity and event, never a read of the pool itself.
func LogEvents[T comparable](p pool.ObjectPool[T], l *zap.Logger, level zapcore.Level) func() {
	l = l.With(zap.String("pool", p.Name()))

	hook := func(e pool.Event) func(T) {
		return func(entity T) {
			if ce := l.Check(level, "pool event"); ce != nil {
				ce.Write(zap.Stringer("event", e), entityField(entity))
			}
		}
	}

	subs := []pool.Subscription{
		p.OnCreated(hook(pool.EventCreated)),
		p.OnRetrieved(hook(pool.EventRetrieved)),
		p.OnReturned(hook(pool.EventReturned)),
		p.OnDestroyed(hook(pool.EventDestroyed)),
		p.OnRecycled(hook(pool.EventRecycled)),
	}
	return func() {
		for _, s := range subs {
			p.Unsubscribe(s)
		}
	}
}

func entityField(entity any) zap.Field {
	if s, ok := entity.(fmt.Stringer); ok {
		return zap.Stringer("entity", s)
	}
	return zap.String("entity", fmt.Sprintf("%v", entity))
}
