// Package eventbus delivers tracker events to UI components.
package eventbus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

// ErrClosed is returned by Close on an already closed bus.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus calls handlers synchronously, in subscription order,
// on the publishing goroutine. Type-specific handlers run before wildcard ones.
//
// Handlers must return quickly and must not publish back into the component
// that is publishing; hand long work to another goroutine.
type SyncEventBus struct {
	logger *zap.Logger

	mu             sync.RWMutex
	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription
	nextID         uint64
	closed         bool
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus(logger *zap.Logger) *SyncEventBus {
	return &SyncEventBus{
		logger:      logger,
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// Publish delivers event to every matching subscriber. Publishing on a
// closed bus is a no-op. A panicking handler is logged and skipped.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	typed := append([]subscription(nil), bus.subscribers[event.Type()]...)
	wildcard := append([]subscription(nil), bus.allSubscribers...)
	bus.mu.RUnlock()

	for _, sub := range typed {
		bus.call(sub, event)
	}
	for _, sub := range wildcard {
		bus.call(sub, event)
	}
}

func (bus *SyncEventBus) call(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("Event handler panicked",
				zap.Any("panic", r),
				zap.String("eventType", string(event.Type())),
				zap.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of the given type.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(string(eventType), handler, func(sub subscription) {
		bus.subscribers[eventType] = append(bus.subscribers[eventType], sub)
	})
}

// SubscribeAll registers a handler that receives every event.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add("all", handler, func(sub subscription) {
		bus.allSubscribers = append(bus.allSubscribers, sub)
	})
}

func (bus *SyncEventBus) add(label string, handler domain.EventHandler, insert func(subscription)) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		bus.logger.Warn("Subscribe on closed event bus ignored", zap.String("eventType", label))
		return ""
	}

	bus.nextID++
	sub := subscription{
		id:      domain.SubscriptionID(fmt.Sprintf("%s-%d", label, bus.nextID)),
		handler: handler,
	}
	insert(sub)
	return sub.id
}

// Unsubscribe removes a handler. Unknown IDs are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.subscribers {
		if i := indexOf(subs, id); i >= 0 {
			bus.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
	if i := indexOf(bus.allSubscribers, id); i >= 0 {
		bus.allSubscribers = append(bus.allSubscribers[:i:i], bus.allSubscribers[i+1:]...)
	}
}

func indexOf(subs []subscription, id domain.SubscriptionID) int {
	for i, sub := range subs {
		if sub.id == id {
			return i
		}
	}
	return -1
}

// SubscriberCount returns the number of live subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

// Close drops all subscriptions; later publishes are no-ops.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil
	return nil
}

var _ domain.EventBus = (*SyncEventBus)(nil)
