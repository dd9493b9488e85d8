package app

import (
	"context"
	"fmt"

	"productservice/internal/config"
	"productservice/internal/platform/database"
	"productservice/internal/platform/kafka"
	"productservice/internal/platform/observability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config            *config.Config
	clientID          string
	logger            *zap.Logger
	tracer            observability.Tracer
	tracerProvider    trace.TracerProvider
	pool              *pgxpool.Pool
	messageProducer   kafka.Producer
	telemetryShutdown observability.ShutdownFunc
}

// NewContainer loads configuration and sets up logging and telemetry.
// Storage and the broker writer are opened separately so CLI commands only
// pay for what they use.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container := &Container{
		config:   cfg,
		clientID: fmt.Sprintf("%s-%s", config.ServiceName, uuid.NewString()),
	}

	if err := container.setupLogger(); err != nil {
		return nil, err
	}

	container.setupObservability(ctx)

	return container, nil
}

func (c *Container) setupLogger() error {
	logger, err := observability.NewConsoleLogger()
	if err != nil {
		return err
	}

	c.logger = logger
	return nil
}

// setupObservability configures OpenTelemetry. Exporter failures are logged
// and the service keeps running without them.
func (c *Container) setupObservability(ctx context.Context) {
	logShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}

	tp, traceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	if tp != nil {
		c.tracerProvider = tp
	}

	metricShutdown, err := observability.SetupMetricsSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
	}

	c.telemetryShutdown = observability.JoinShutdown(traceShutdown, metricShutdown, logShutdown)

	c.logger = observability.NewLogger(c.config, zap.String("client_id", c.clientID))
	if c.config.TelemetryEnabled() {
		c.logger.Info("Logger re-initialized with OpenTelemetry bridge")
	}

	c.tracer = otel.Tracer(config.ServiceName)
}

// OpenDatabase applies migrations when enabled and opens the connection pool.
func (c *Container) OpenDatabase(ctx context.Context) error {
	if c.config.RunMigrations {
		if err := database.RunMigrations(c.config.DatabaseURL, c.logger); err != nil {
			return err
		}
	}

	pool, err := database.NewPool(ctx, c.config.DatabaseURL)
	if err != nil {
		return err
	}
	c.pool = pool
	return nil
}

// OpenProducer creates the writer shared by every publish.
func (c *Container) OpenProducer() error {
	writer, err := kafka.NewWriter(c.config.KafkaBroker, c.clientID, c.tracerProvider)
	if err != nil {
		return fmt.Errorf("create kafka writer: %w", err)
	}
	c.messageProducer = writer
	return nil
}

// Subscribe opens a new consumer-group reader on the stock topic.
func (c *Container) Subscribe() kafka.Consumer {
	return kafka.NewReader(c.config.KafkaBroker, c.clientID)
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}

	if c.pool != nil {
		c.pool.Close()
	}

	if c.telemetryShutdown != nil {
		if err := c.telemetryShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")

	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// Getters for accessing infrastructure components
func (c *Container) Config() *config.Config          { return c.config }
func (c *Container) Logger() observability.Logger    { return c.logger }
func (c *Container) Tracer() observability.Tracer    { return c.tracer }
func (c *Container) Pool() *pgxpool.Pool             { return c.pool }
func (c *Container) MessageProducer() kafka.Producer { return c.messageProducer }
func (c *Container) Admin() kafka.Admin              { return kafka.NewAdmin(c.config.KafkaBroker, c.clientID) }
