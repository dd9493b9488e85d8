//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	httpapi "productservice/internal/http"
	"productservice/internal/platform/database"
	"productservice/internal/platform/kafka"
	"productservice/internal/product"
	"productservice/internal/stock"
)

func TestStockPipelineIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgC, dsn := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	kafkaC, broker := startKafka(ctx, t)
	defer terminateContainer(t, kafkaC)

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	tracer := noop.NewTracerProvider().Tracer("integration")

	require.NoError(t, database.RunMigrations(dsn, logger))
	pool, err := database.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	bootstrapper := kafka.NewTopicBootstrapper(kafka.NewAdmin(broker, "it-admin"), kafka.ProductStockTopicSpec(), logger)
	require.NoError(t, bootstrapper.EnsureTopic(ctx))
	require.NoError(t, bootstrapper.EnsureTopic(ctx), "second bootstrap must be a no-op")

	writer, err := kafka.NewWriter(broker, "it-writer", nil)
	require.NoError(t, err)
	defer writer.Close()

	consumer := stock.NewConsumerService(
		func() kafka.Consumer { return kafka.NewReader(broker, "it-reader") },
		func(ctx context.Context) (stock.Store, func(), error) {
			repo, release, err := product.AcquireRepository(ctx, pool)
			if err != nil {
				return nil, nil, err
			}
			return repo, release, nil
		},
		logger,
		tracer,
	)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumerDone := make(chan error, 1)
	go func() { consumerDone <- consumer.Start(consumerCtx) }()
	defer func() {
		stopConsumer()
		select {
		case err := <-consumerDone:
			require.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Error("consumer did not stop")
		}
	}()

	handler := httpapi.NewHandler(stock.NewProducer(writer, logger, tracer), product.NewPostgresRepository(pool), logger)
	server := httptest.NewServer(httpapi.NewRouter(handler, logger))
	defer server.Close()

	client := &http.Client{Timeout: 15 * time.Second}

	// Accepted regardless of whether the product exists.
	require.Equal(t, http.StatusAccepted, patchStock(ctx, t, client, server.URL, 7, 3))

	// A malformed message must not block the next valid intent.
	require.NoError(t, writer.WriteMessage(ctx, kafkago.Message{Value: []byte("not an intent")}))

	require.Equal(t, http.StatusAccepted, patchStock(ctx, t, client, server.URL, 5, 12))

	require.Eventually(t, func() bool {
		p, ok := getProduct(ctx, t, client, server.URL, 5)
		return ok && p.Quantity == 12
	}, 60*time.Second, 250*time.Millisecond)

	_, ok := getProduct(ctx, t, client, server.URL, 7)
	require.False(t, ok, "intent for a missing product must not create it")
}

func patchStock(ctx context.Context, t *testing.T, client *http.Client, baseURL string, id, quantity int) int {
	t.Helper()

	body := fmt.Sprintf(`{"NewQuantity":%d}`, quantity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, fmt.Sprintf("%s/v2/products/%d", baseURL, id), strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode
}

func getProduct(ctx context.Context, t *testing.T, client *http.Client, baseURL string, id int) (product.Product, bool) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/products/%d", baseURL, id), nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return product.Product{}, false
	}

	var p product.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p, true
}

func startPostgres(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "products"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/products?sslmode=disable", host, mappedPort.Port())
	return container, dsn
}

func startKafka(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("product-stock-it"))
	require.NoError(t, err)

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	return container, brokers[0]
}

func terminateContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Terminate(terminateCtx))
}
