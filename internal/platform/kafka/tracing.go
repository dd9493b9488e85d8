package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractTraceContext returns ctx enriched with any trace context carried in the message headers.
func ExtractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	if len(headers) == 0 {
		return ctx
	}

	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
