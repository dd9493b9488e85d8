package stock

import (
	"productservice/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type pipelineMetrics struct {
	published       metric.Int64Counter
	publishFailures metric.Int64Counter
	applied         metric.Int64Counter
	dropped         metric.Int64Counter
	notFound        metric.Int64Counter
}

func newPipelineMetrics() *pipelineMetrics {
	meter := otel.Meter(config.ServiceName)
	return &pipelineMetrics{
		published:       counter(meter, "product_stock.intents.published", "Intents acknowledged by the broker"),
		publishFailures: counter(meter, "product_stock.intents.publish_failures", "Intents the broker did not acknowledge"),
		applied:         counter(meter, "product_stock.intents.applied", "Intents applied to storage"),
		dropped:         counter(meter, "product_stock.intents.dropped", "Malformed intents dropped by the consumer"),
		notFound:        counter(meter, "product_stock.intents.not_found", "Intents targeting a missing product"),
	}
}

// counter falls back to a no-op instrument; telemetry problems never block the pipeline.
func counter(meter metric.Meter, name, description string) metric.Int64Counter {
	c, err := meter.Int64Counter(name,
		metric.WithDescription(description),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
