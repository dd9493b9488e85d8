package app

import (
	"context"

	httpapi "productservice/internal/http"
	"productservice/internal/platform/kafka"
	"productservice/internal/product"
	"productservice/internal/stock"
)

// ServiceFactory wires pipeline components from container resources
type ServiceFactory struct {
	container *Container
}

func NewServiceFactory(container *Container) *ServiceFactory {
	return &ServiceFactory{
		container: container,
	}
}

func (f *ServiceFactory) CreateTopicBootstrapper() *kafka.TopicBootstrapper {
	return kafka.NewTopicBootstrapper(f.container.Admin(), kafka.ProductStockTopicSpec(), f.container.Logger())
}

func (f *ServiceFactory) CreateProducer() *stock.Producer {
	return stock.NewProducer(f.container.MessageProducer(), f.container.Logger(), f.container.Tracer())
}

func (f *ServiceFactory) CreateConsumerService() *stock.ConsumerService {
	return stock.NewConsumerService(f.container.Subscribe, f.acquireStore, f.container.Logger(), f.container.Tracer())
}

func (f *ServiceFactory) CreateHandler(publisher stock.Publisher) *httpapi.Handler {
	return httpapi.NewHandler(publisher, product.NewPostgresRepository(f.container.Pool()), f.container.Logger())
}

// acquireStore checks out one pooled connection for a single message.
func (f *ServiceFactory) acquireStore(ctx context.Context) (stock.Store, func(), error) {
	repo, release, err := product.AcquireRepository(ctx, f.container.Pool())
	if err != nil {
		return nil, nil, err
	}
	return repo, release, nil
}
