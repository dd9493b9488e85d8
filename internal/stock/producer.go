package stock

import (
	"context"
	"fmt"

	"productservice/internal/config"
	"productservice/internal/platform/kafka"
	"productservice/internal/platform/observability"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Publisher hands stock update intents to the broker.
type Publisher interface {
	Publish(ctx context.Context, intent Intent) error
}

// Producer publishes intents through a shared broker writer. It is safe for
// concurrent use by request handlers.
type Producer struct {
	writer  kafka.Producer
	logger  observability.Logger
	tracer  observability.Tracer
	metrics *pipelineMetrics
}

func NewProducer(writer kafka.Producer, logger observability.Logger, tracer observability.Tracer) *Producer {
	return &Producer{
		writer:  writer,
		logger:  logger,
		tracer:  tracer,
		metrics: newPipelineMetrics(),
	}
}

// Publish blocks until the broker acknowledges the intent or the write fails.
// The write is not abandoned when ctx is cancelled, so a returned nil always
// means the intent is durable.
func (p *Producer) Publish(ctx context.Context, intent Intent) error {
	ctx = context.WithoutCancel(ctx)

	ctx, span := p.tracer.Start(ctx, "product_stock.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingDestinationNameKey.String(config.ProductStockTopic),
			attribute.Int("product.id", intent.ProductID),
			attribute.Int("product.new_quantity", intent.NewQuantity),
		),
	)
	defer span.End()

	payload, err := EncodeIntent(intent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode stock intent: %w", err)
	}

	if err := p.writer.WriteMessage(ctx, kafkago.Message{Value: payload}); err != nil {
		p.metrics.publishFailures.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		p.logger.Error("❌ Failed to publish stock update intent",
			zap.Int("product_id", intent.ProductID),
			zap.Int("new_quantity", intent.NewQuantity),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	p.metrics.published.Add(ctx, 1)
	p.logger.Info("📤 Stock update intent published",
		zap.Int("product_id", intent.ProductID),
		zap.Int("new_quantity", intent.NewQuantity),
	)
	return nil
}
