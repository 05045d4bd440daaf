package tracing

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cardwatch/internal/observability/obscontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cardwatch/http"

// GinMiddleware opens a server span per request. The span starts under a
// method-only name and is renamed to the matched route after the handler
// chain runs, so unrouted requests never explode span cardinality.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		ctx = annotateRequestID(ctx, span)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		finishSpan(c, span, start)
	}
}

func annotateRequestID(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}

	span.SetAttributes(attribute.String("request_id", requestID))
	if member, err := baggage.NewMember("request_id", requestID); err == nil {
		if bag, err := baggage.New(member); err == nil {
			ctx = baggage.ContextWithBaggage(ctx, bag)
		}
	}
	return ctx
}

func finishSpan(c *gin.Context, span trace.Span, start time.Time) {
	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", c.Writer.Status()),
		attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
	}
	// Handlers stamp the caller identity into the request context; pick it
	// up here so spans correlate with quota decisions for the same account.
	if externalID := obscontext.ExternalIDFromContext(c.Request.Context()); externalID != "" {
		attrs = append(attrs, attribute.String("external_id", externalID))
	}

	span.SetName("HTTP " + c.Request.Method + " " + route)
	span.SetAttributes(SafeAttributes(attrs...)...)

	if c.Writer.Status() >= http.StatusInternalServerError {
		if last := c.Errors.Last(); last != nil {
			if safeErr := SafeError(last.Err); safeErr != nil {
				span.RecordError(safeErr)
			}
		}
		span.SetStatus(codes.Error, "request error")
	}
	span.End()
}
