package tracing

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Op classifies a storage span.
type Op string

const (
	OpQuery     Op = "db.query"
	OpInsert    Op = "db.insert"
	OpUpdate    Op = "db.update"
	OpDelete    Op = "db.delete"
	OpAggregate Op = "db.aggregate"

	OpCacheGet Op = "cache.get"
	OpCacheSet Op = "cache.set"
)

// DBCall describes one document store call.
type DBCall struct {
	Op         Op
	System     string // "mongodb" or "memory"
	Collection string
	// Statement is the repository operation, e.g. "UpsertOne".
	Statement string
}

// StartDBSpan starts a client span named "DB <op> <collection>".
func StartDBSpan(ctx context.Context, call DBCall) (context.Context, trace.Span) {
	name := "DB " + string(call.Op)
	attrs := []attribute.KeyValue{attribute.String("db.operation", string(call.Op))}
	if call.Collection != "" {
		name += " " + call.Collection
		attrs = append(attrs, attribute.String("db.mongodb.collection", call.Collection))
	}
	if call.System != "" {
		attrs = append(attrs, attribute.String("db.system", call.System))
	}
	if call.Statement != "" {
		attrs = append(attrs, attribute.String("db.statement", call.Statement))
	}
	return otel.Tracer("database").Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// StartCacheSpan starts a client span for a response cache read or write. Cache keys
// are derived from request paths and never hold credentials.
func StartCacheSpan(ctx context.Context, op Op, system, key string) (context.Context, trace.Span) {
	return otel.Tracer("cache").Start(ctx, "CACHE "+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.operation", string(op)),
			attribute.String("cache.system", system),
			attribute.String("cache.key", key),
		))
}

// StartClientSpan starts a span for a call to a third-party API. The name carries
// the provider rather than the URL so ids in paths stay out of it.
func StartClientSpan(ctx context.Context, provider, method, path string) (context.Context, trace.Span) {
	return otel.Tracer("apiclient").Start(ctx, "HTTP "+method+" "+provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", provider),
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		))
}

func RecordHit(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool("cache.hit", hit))
}

// RecordStatus stores the upstream status code. 5xx fails the span.
func RecordStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= 500 {
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
	}
}

// RecordError fails the span with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
