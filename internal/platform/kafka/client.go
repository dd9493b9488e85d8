package kafka

import (
	"context"
	"time"

	"productservice/internal/config"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const dialTimeout = 10 * time.Second

// NewWriter creates the shared, synchronous producer for the stock topic.
// When tp is non-nil the writer is instrumented and injects trace context headers.
func NewWriter(broker, clientID string, tp trace.TracerProvider) (Producer, error) {
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  config.ProductStockTopic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		Transport:              &kafka.Transport{ClientID: clientID, DialTimeout: dialTimeout},
	}

	if tp == nil {
		return &writer{w: baseWriter}, nil
	}

	tracedWriter, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(config.ProductStockTopic),
				attribute.String("messaging.kafka.client_id", clientID),
			},
		),
	)
	if err != nil {
		return nil, err
	}
	return tracedWriter, nil
}

// NewReader subscribes to the stock topic as a member of the stock consumer group.
// A group without committed offsets starts from the earliest message.
func NewReader(broker, clientID string) Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       config.ProductStockTopic,
		GroupID:     config.ConsumerGroupID,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		Dialer: &kafka.Dialer{
			ClientID:  clientID,
			Timeout:   dialTimeout,
			DualStack: true,
		},
	})
	return &reader{r: r}
}

// NewAdmin returns a cluster client for metadata and topic creation requests.
func NewAdmin(broker, clientID string) *kafka.Client {
	return &kafka.Client{
		Addr:      kafka.TCP(broker),
		Timeout:   config.MetadataTimeout,
		Transport: &kafka.Transport{ClientID: clientID, DialTimeout: dialTimeout},
	}
}

type writer struct {
	w *kafka.Writer
}

func (w *writer) WriteMessage(ctx context.Context, msg kafka.Message) error {
	return w.w.WriteMessages(ctx, msg)
}

func (w *writer) Close() error {
	return w.w.Close()
}

type reader struct {
	r *kafka.Reader
}

func (r *reader) FetchMessage(ctx context.Context) (*kafka.Message, error) {
	msg, err := r.r.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return r.r.CommitMessages(ctx, msgs...)
}

func (r *reader) Close() error {
	return r.r.Close()
}
