package stock

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"productservice/internal/config"
	"productservice/internal/platform/kafka"
	"productservice/internal/platform/observability"
	"productservice/internal/product"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Store applies a stock update to persistent storage.
type Store interface {
	ApplyStockUpdate(ctx context.Context, productID, newQuantity int) (product.Product, error)
}

// StoreFactory yields a store scoped to a single message and a func that releases it.
type StoreFactory func(ctx context.Context) (Store, func(), error)

// SubscribeFunc opens a consumer-group subscription to the stock topic.
type SubscribeFunc func() kafka.Consumer

type ConsumerOption func(*ConsumerService)

// WithReadErrorBackoff sets the pause after a failed fetch.
func WithReadErrorBackoff(d time.Duration) ConsumerOption {
	return func(c *ConsumerService) {
		c.readErrorBackoff = d
	}
}

// ConsumerService drains the stock topic and applies each intent to storage.
// Offsets are committed only after a message has been handled, so delivery
// is at-least-once.
type ConsumerService struct {
	subscribe        SubscribeFunc
	stores           StoreFactory
	logger           observability.Logger
	tracer           observability.Tracer
	metrics          *pipelineMetrics
	readErrorBackoff time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumerService(subscribe SubscribeFunc, stores StoreFactory, logger observability.Logger, tracer observability.Tracer, opts ...ConsumerOption) *ConsumerService {
	c := &ConsumerService{
		subscribe:        subscribe,
		stores:           stores,
		logger:           logger,
		tracer:           tracer,
		metrics:          newPipelineMetrics(),
		readErrorBackoff: config.ReadErrorBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is cancelled, Stop is called or the subscription
// is closed. Cancellation is a normal exit and returns nil.
func (c *ConsumerService) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return ErrConsumerRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel, c.done = nil, nil
		c.mu.Unlock()
		close(done)
	}()

	consumer := c.subscribe()
	defer func() {
		if err := consumer.Close(); err != nil {
			c.logger.Error("Failed to close stock consumer", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started. Waiting for stock update intents...",
		zap.String("topic", config.ProductStockTopic),
		zap.String("group_id", config.ConsumerGroupID),
	)

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context done, exiting Kafka read loop.")
				break
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("Subscription closed, exiting Kafka read loop.")
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err))
			if !c.pause(ctx) {
				break
			}
			continue
		}

		// The reader reports the end of the partition as an empty fetch.
		if msg == nil {
			continue
		}

		if !c.handleMessage(ctx, *msg) {
			c.logger.Info("Shutdown interrupted message handling, leaving offset uncommitted",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			break
		}

		if err := consumer.CommitMessages(ctx, *msg); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("❌ Failed to commit offset",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("Consumer service finished. Shutting down...")
	return nil
}

// Stop cancels a running Start and waits for it to return.
func (c *ConsumerService) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ConsumerService) pause(ctx context.Context) bool {
	timer := time.NewTimer(c.readErrorBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// handleMessage reports whether the message may be committed. It returns
// false only when shutdown interrupted the storage write.
func (c *ConsumerService) handleMessage(ctx context.Context, msg kafkago.Message) (commit bool) {
	msgCtx := kafka.ExtractTraceContext(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "product_stock.apply",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingDestinationNameKey.String(config.ProductStockTopic),
			attribute.String("messaging.kafka.consumer.group", config.ConsumerGroupID),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	fields := []zap.Field{
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			c.logger.Error("❌ Recovered from panic while handling stock update intent",
				append(fields, zap.Any("panic", r))...)
			commit = true
		}
	}()

	intent, err := DecodeIntent(msg.Value)
	if err != nil {
		c.metrics.dropped.Add(msgCtx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed intent")
		c.logger.Warn("⚠️ Dropping malformed stock update intent",
			append(fields, zap.ByteString("raw_value", msg.Value), zap.Error(err))...)
		return true
	}

	span.SetAttributes(
		attribute.Int("product.id", intent.ProductID),
		attribute.Int("product.new_quantity", intent.NewQuantity),
	)
	fields = append(fields,
		zap.Int("product_id", intent.ProductID),
		zap.Int("new_quantity", intent.NewQuantity),
	)

	return c.apply(msgCtx, intent, span, fields)
}

func (c *ConsumerService) apply(ctx context.Context, intent Intent, span trace.Span, fields []zap.Field) bool {
	store, release, err := c.stores(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage unavailable")
		c.logger.Error("❌ Failed to acquire storage for stock update", append(fields, zap.Error(err))...)
		return true
	}
	defer release()

	updated, err := store.ApplyStockUpdate(ctx, intent.ProductID, intent.NewQuantity)
	switch {
	case err == nil:
		c.metrics.applied.Add(ctx, 1)
		c.logger.Info("✅ Stock update applied",
			append(fields, zap.Time("last_updated_at", updated.LastUpdatedAt))...)
	case errors.Is(err, product.ErrNotFound):
		c.metrics.notFound.Add(ctx, 1)
		span.SetStatus(codes.Error, "product not found")
		c.logger.Warn("⚠️ Stock update for unknown product skipped", fields...)
	case ctx.Err() != nil:
		return false
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		c.logger.Error("❌ Failed to apply stock update", append(fields, zap.Error(err))...)
	}
	return true
}
