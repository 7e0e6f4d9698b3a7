// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

var (
	ErrBusClosed = errors.New("event bus is shutting down")
	ErrBusFull   = errors.New("event channel full")
)

const (
	defaultBufferSize = 256
	deliveryWorkers   = 4
)

// Publisher is the write side of the bus used by settlement code.
type Publisher interface {
	Publish(event Event) error
}

type entry struct {
	id      string
	handler Handler
}

// Bus queues settlement events for a fixed pool of delivery workers. Publish never
// blocks. Each event goes to its handlers in subscription order; a failing handler
// does not stop the others and its error never reaches the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]entry
	closed   bool

	queue   chan Event
	workers int
	wg      sync.WaitGroup

	// ctx is handed to handlers and cancelled only when Shutdown runs out of time.
	ctx    context.Context
	cancel context.CancelFunc

	logger  *zap.Logger
	metrics *metrics.Collector

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

var _ Publisher = (*Bus)(nil)

// NewBus starts a bus holding up to bufferSize undelivered events.
func NewBus(logger *zap.Logger, collector *metrics.Collector, bufferSize int) *Bus {
	return newBus(logger, collector, bufferSize, deliveryWorkers)
}

func newBus(logger *zap.Logger, collector *metrics.Collector, bufferSize, workers int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType][]entry),
		queue:    make(chan Event, bufferSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("event_bus"),
		metrics:  collector,
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	return b
}

// Subscribe registers handler for eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	id := uuid.NewString()

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
	return &subscription{id: id, bus: b, typ: eventType}
}

func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[eventType]
	for i, e := range list {
		if e.id == id {
			b.handlers[eventType] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Publish queues event for delivery. It returns ErrBusFull when the queue is at
// capacity and ErrBusClosed after Shutdown.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.metrics.RecordDroppedEvent()
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// Dispatch delivers event to its handlers on the calling goroutine and joins
// their errors.
func (b *Bus) Dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	list := append([]entry(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	var errs []error
	for _, e := range list {
		if err := e.handler.Handle(ctx, event); err != nil {
			b.failed.Add(1)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("subscription_id", e.id),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		b.delivered.Add(1)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d handlers failed: %w", len(errs), len(list), errors.Join(errs...))
	}
	return nil
}

func (b *Bus) work() {
	defer b.wg.Done()
	for event := range b.queue {
		_ = b.Dispatch(b.ctx, event)
	}
}

// Shutdown stops intake and waits for queued events to be delivered. If ctx ends
// first, in-flight handlers are cancelled and ctx.Err() is returned.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pending := len(b.queue)
	close(b.queue)
	b.mu.Unlock()

	b.logger.Info("Shutting down event bus", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.cancel()
		b.logger.Info("Event bus shutdown complete",
			zap.Int64("delivered", b.delivered.Load()),
			zap.Int64("failed", b.failed.Load()))
		return nil
	case <-ctx.Done():
		b.cancel()
		<-done
		b.logger.Warn("Event bus shutdown timeout", zap.Int("undelivered", len(b.queue)))
		return ctx.Err()
	}
}

// Stats reports queue depth, delivery counters and subscriptions per event type.
func (b *Bus) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	perType := make(map[string]int, len(b.handlers))
	for t, list := range b.handlers {
		perType[string(t)] = len(list)
	}
	return map[string]interface{}{
		"buffer_size":       cap(b.queue),
		"pending_events":    len(b.queue),
		"workers":           b.workers,
		"published":         b.published.Load(),
		"delivered":         b.delivered.Load(),
		"handler_failures":  b.failed.Load(),
		"dropped":           b.dropped.Load(),
		"handlers_per_type": perType,
	}
}
