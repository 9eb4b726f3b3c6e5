package internal

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Base carries the receive time and the trace span context of an item
// travelling between stages. It is meant to be embedded.
type Base struct {
	receiveTime time.Time
	span        trace.SpanContext
}

// SetReceiveTime sets the time the item was received.
func (b *Base) SetReceiveTime(receiveTime time.Time) {
	b.receiveTime = receiveTime
}

// GetReceiveTime returns the time the item was received.
func (b *Base) GetReceiveTime() time.Time {
	return b.receiveTime
}

// SaveSpan saves the trace span of the item.
func (b *Base) SaveSpan(span trace.Span) {
	b.span = span.SpanContext()
}

// LoadSpanContext loads the saved trace span into the provided context.
func (b *Base) LoadSpanContext(ctx context.Context) context.Context {
	return trace.ContextWithSpanContext(ctx, b.span)
}
