package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"productservice/internal/config"
	httpapi "productservice/internal/http"
	"productservice/internal/platform/database"
	"productservice/internal/platform/kafka"
	"productservice/internal/stock"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx          context.Context
	cancel       context.CancelFunc
	container    *Container
	bootstrapper *kafka.TopicBootstrapper
	consumer     *stock.ConsumerService
	server       *http.Server
}

// NewApplication creates and fully initializes a new Application instance
func NewApplication(ctx context.Context) (*Application, error) {
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := &Application{
		ctx:    appCtx,
		cancel: cancel,
	}

	container, err := NewContainer(app.ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	app.container = container

	if err := container.OpenDatabase(app.ctx); err != nil {
		app.Shutdown()
		return nil, err
	}
	if err := container.OpenProducer(); err != nil {
		app.Shutdown()
		return nil, err
	}

	factory := NewServiceFactory(container)
	app.bootstrapper = factory.CreateTopicBootstrapper()
	app.consumer = factory.CreateConsumerService()
	app.server = &http.Server{
		Addr:              container.Config().HTTPAddr,
		Handler:           httpapi.NewRouter(factory.CreateHandler(factory.CreateProducer()), container.Logger()),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	container.Logger().Info("Application initialized successfully")
	return app, nil
}

// Run bootstraps the topic, then serves HTTP and consumes intents until the
// process is signalled. Nothing is served if the topic cannot be ensured.
func (app *Application) Run() error {
	logger := app.container.Logger()

	if err := app.bootstrapper.EnsureTopic(app.ctx); err != nil {
		logger.Error("❌ Topic bootstrap failed", zap.Error(err))
		return err
	}

	g, ctx := errgroup.WithContext(app.ctx)

	// The consumer outlives ctx until the HTTP server has drained.
	consumerCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsumer()

	g.Go(func() error {
		return app.consumer.Start(consumerCtx)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown requested, draining HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		err := app.server.Shutdown(shutdownCtx)
		stopConsumer()
		return err
	})

	return g.Wait()
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	if app.cancel != nil {
		app.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if app.consumer != nil {
		if err := app.consumer.Stop(ctx); err != nil {
			app.container.Logger().Error("Failed to stop consumer", zap.Error(err))
		}
	}

	if app.container != nil {
		app.container.Shutdown(ctx)
	}
}

// EnsureTopic runs the topic bootstrapper on its own.
func EnsureTopic(ctx context.Context) error {
	container, err := NewContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Shutdown(context.Background())

	return NewServiceFactory(container).CreateTopicBootstrapper().EnsureTopic(ctx)
}

// Migrate applies database migrations regardless of RUN_MIGRATIONS.
func Migrate(ctx context.Context) error {
	container, err := NewContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Shutdown(context.Background())

	return database.RunMigrations(container.Config().DatabaseURL, container.Logger())
}
