package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes messages to the topic it was built for. Implementations
// must be safe for concurrent use.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer is a consumer-group subscription. Offsets only advance on CommitMessages.
type Consumer interface {
	FetchMessage(ctx context.Context) (*kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Admin is the subset of *kafka.Client used for topic management.
type Admin interface {
	Metadata(ctx context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error)
	CreateTopics(ctx context.Context, req *kafka.CreateTopicsRequest) (*kafka.CreateTopicsResponse, error)
}
