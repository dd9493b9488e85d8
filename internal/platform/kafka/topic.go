package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productservice/internal/config"
	"productservice/internal/platform/observability"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrBootstrapFailure wraps every error that prevents the topic from being confirmed or created.
var ErrBootstrapFailure = errors.New("kafka topic bootstrap failed")

// TopicSpec describes the topic a TopicBootstrapper guarantees.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// ProductStockTopicSpec is the single-partition stream carrying stock update intents.
func ProductStockTopicSpec() TopicSpec {
	return TopicSpec{
		Name:              config.ProductStockTopic,
		Partitions:        config.TopicPartitions,
		ReplicationFactor: config.TopicReplicationFactor,
	}
}

// TopicBootstrapper makes sure a topic exists before producers and consumers start.
// Running it any number of times, from any number of processes, is safe.
type TopicBootstrapper struct {
	admin           Admin
	spec            TopicSpec
	logger          observability.Logger
	metadataTimeout time.Duration
}

// NewTopicBootstrapper creates a bootstrapper with explicit dependencies
func NewTopicBootstrapper(admin Admin, spec TopicSpec, logger observability.Logger) *TopicBootstrapper {
	return &TopicBootstrapper{
		admin:           admin,
		spec:            spec,
		logger:          logger,
		metadataTimeout: config.MetadataTimeout,
	}
}

// EnsureTopic creates the topic when the cluster metadata does not list it.
// A concurrent creation by another instance counts as success.
func (b *TopicBootstrapper) EnsureTopic(ctx context.Context) error {
	exists, err := b.topicExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	resp, err := b.admin.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             b.spec.Name,
			NumPartitions:     b.spec.Partitions,
			ReplicationFactor: b.spec.ReplicationFactor,
		}},
	})
	if err != nil {
		return fmt.Errorf("%w: create topic %q: %w", ErrBootstrapFailure, b.spec.Name, err)
	}

	if topicErr := resp.Errors[b.spec.Name]; topicErr != nil {
		if errors.Is(topicErr, kafka.TopicAlreadyExists) {
			b.logger.Info("Topic was created concurrently by another instance", zap.String("topic", b.spec.Name))
			return nil
		}
		return fmt.Errorf("%w: create topic %q: %w", ErrBootstrapFailure, b.spec.Name, topicErr)
	}

	b.logger.Info("Topic created",
		zap.String("topic", b.spec.Name),
		zap.Int("partitions", b.spec.Partitions),
		zap.Int("replication_factor", b.spec.ReplicationFactor),
	)
	return nil
}

func (b *TopicBootstrapper) topicExists(ctx context.Context) (bool, error) {
	metaCtx, cancel := context.WithTimeout(ctx, b.metadataTimeout)
	defer cancel()

	// No topic names: list everything, so the lookup itself never triggers broker-side auto-creation.
	meta, err := b.admin.Metadata(metaCtx, &kafka.MetadataRequest{})
	if err != nil {
		return false, fmt.Errorf("%w: read cluster metadata: %w", ErrBootstrapFailure, err)
	}

	for _, topic := range meta.Topics {
		if topic.Name != b.spec.Name {
			continue
		}
		if topic.Error != nil {
			if errors.Is(topic.Error, kafka.UnknownTopicOrPartition) {
				return false, nil
			}
			return false, fmt.Errorf("%w: topic %q metadata: %w", ErrBootstrapFailure, b.spec.Name, topic.Error)
		}

		if len(topic.Partitions) > b.spec.Partitions {
			b.logger.Warn("Topic has more partitions than expected; intents for one product may be applied out of order",
				zap.String("topic", b.spec.Name),
				zap.Int("partitions", len(topic.Partitions)),
				zap.Int("expected_partitions", b.spec.Partitions),
			)
		}
		b.logger.Info("Topic already exists", zap.String("topic", b.spec.Name))
		return true, nil
	}

	return false, nil
}
