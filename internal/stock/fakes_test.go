package stock

import (
	"context"
	"sync"
	"time"

	"productservice/internal/product"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("stock-test")

type fetchResult struct {
	msg *kafkago.Message
	err error
}

// memoryTopic is a single-partition in-memory topic that acts as both the
// producer and the consumer side of the broker.
type memoryTopic struct {
	queue chan fetchResult

	mu        sync.Mutex
	nextOff   int64
	written   []kafkago.Message
	committed []kafkago.Message
	writeErr  error
	writeCtx  []context.Context
	closed    bool
}

func newMemoryTopic() *memoryTopic {
	return &memoryTopic{queue: make(chan fetchResult, 128)}
}

func (m *memoryTopic) WriteMessage(ctx context.Context, msg kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCtx = append(m.writeCtx, ctx)
	if m.writeErr != nil {
		return m.writeErr
	}
	msg.Offset = m.nextOff
	m.nextOff++
	m.written = append(m.written, msg)
	m.queue <- fetchResult{msg: &msg}
	return nil
}

func (m *memoryTopic) pushValue(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := kafkago.Message{Value: []byte(value), Offset: m.nextOff}
	m.nextOff++
	m.queue <- fetchResult{msg: &msg}
}

func (m *memoryTopic) pushErr(err error) {
	m.queue <- fetchResult{err: err}
}

func (m *memoryTopic) pushEmpty() {
	m.queue <- fetchResult{}
}

func (m *memoryTopic) FetchMessage(ctx context.Context) (*kafkago.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-m.queue:
		return r.msg, r.err
	}
}

func (m *memoryTopic) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *memoryTopic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memoryTopic) committedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

func (m *memoryTopic) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// memoryStore is a product table keyed by id holding only quantities.
type memoryStore struct {
	mu         sync.Mutex
	quantities map[int]int
	applies    int
	acquired   int
	released   int
	err        error
	panicOnID  int
}

func newMemoryStore(quantities map[int]int) *memoryStore {
	return &memoryStore{quantities: quantities}
}

func (s *memoryStore) factory(context.Context) (Store, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired++
	return s, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.released++
	}, nil
}

func (s *memoryStore) ApplyStockUpdate(_ context.Context, productID, newQuantity int) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applies++
	if s.panicOnID != 0 && productID == s.panicOnID {
		panic("storage exploded")
	}
	if s.err != nil {
		return product.Product{}, s.err
	}
	if _, ok := s.quantities[productID]; !ok {
		return product.Product{}, product.ErrNotFound
	}
	s.quantities[productID] = newQuantity
	return product.Product{ID: productID, Quantity: newQuantity, LastUpdatedAt: time.Now()}, nil
}

func (s *memoryStore) quantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantities[productID]
}

func (s *memoryStore) handles() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}
