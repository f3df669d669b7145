package client

import (
	"sync"

	"github.com/entrhq/shopeeweb/pkg/types"
)

// Handler receives client events. Handlers run on the goroutine that emits
// the event and must not block for long.
type Handler func(event *types.ClientEvent)

// anyEvent is the registry key for handlers subscribed to every event type.
const anyEvent types.ClientEventType = ""

type subscription struct {
	id      uint64
	handler Handler
}

// emitter is the listener registry owned by one Client.
type emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[types.ClientEventType][]subscription
}

func newEmitter() *emitter {
	return &emitter{
		handlers: make(map[types.ClientEventType][]subscription),
	}
}

// on registers handler for eventType and returns its unsubscribe function.
func (e *emitter) on(eventType types.ClientEventType, handler Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers[eventType] = append(e.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { e.off(eventType, id) })
	}
}

func (e *emitter) off(eventType types.ClientEventType, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			e.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// emit delivers event to the handlers of its type, then to catch-all
// handlers, in registration order. The registry lock is not held while
// handlers run, so a handler may subscribe, unsubscribe or destroy the client.
func (e *emitter) emit(event *types.ClientEvent) {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.handlers[event.Type])+len(e.handlers[anyEvent]))
	subs = append(subs, e.handlers[event.Type]...)
	subs = append(subs, e.handlers[anyEvent]...)
	e.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// clear drops every handler.
func (e *emitter) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[types.ClientEventType][]subscription)
}

func (e *emitter) count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, subs := range e.handlers {
		n += len(subs)
	}
	return n
}
