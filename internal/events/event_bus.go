package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryBus implements Bus using in-memory handler maps.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]Handler // threadID -> subscriptionID -> handler
	store       *InMemoryStore
}

// NewBus creates an InMemoryBus backed by the given store. A nil store
// disables replay.
func NewBus(store *InMemoryStore) *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]map[string]Handler),
		store:       store,
	}
}

// Publish stores the event (when a store is configured) and delivers it to
// thread and wildcard subscribers.
func (b *InMemoryBus) Publish(event Event) error {
	if event.ThreadID == "" {
		return fmt.Errorf("event must have a ThreadID")
	}

	if b.store != nil {
		b.store.Store(event)
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.ThreadID])+len(b.subscribers[Wildcard]))
	for _, h := range b.subscribers[event.ThreadID] {
		handlers = append(handlers, h)
	}
	for _, h := range b.subscribers[Wildcard] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// Delivery happens outside the lock so handlers may subscribe or
	// publish themselves.
	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

// Subscribe registers a handler for one thread's events, or all events when
// threadID is Wildcard.
func (b *InMemoryBus) Subscribe(threadID string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[threadID] == nil {
		b.subscribers[threadID] = make(map[string]Handler)
	}

	subscriptionID := uuid.New().String()
	b.subscribers[threadID][subscriptionID] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if handlers, exists := b.subscribers[threadID]; exists {
			delete(handlers, subscriptionID)
			if len(handlers) == 0 {
				delete(b.subscribers, threadID)
			}
		}
	}
}

// Recent returns stored events after lastEventID for a thread.
func (b *InMemoryBus) Recent(threadID string, lastEventID string) ([]Event, error) {
	if b.store == nil {
		return []Event{}, nil
	}
	return b.store.Since(threadID, lastEventID, 100), nil
}

// SubscriberCount returns the number of subscribers for a thread.
func (b *InMemoryBus) SubscriberCount(threadID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[threadID])
}

// TotalSubscribers returns the subscriber count across all threads.
func (b *InMemoryBus) TotalSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, handlers := range b.subscribers {
		total += len(handlers)
	}
	return total
}
