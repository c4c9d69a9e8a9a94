/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 The Blink Go SDK Authors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a handle to a registered event handler. Cancel removes
// the handler; events emitted after Cancel returns are not delivered.
type Subscription interface {
	Cancel()
}

// EventHandler is a callback for emitted events.
type EventHandler func(data interface{})

// Emitter is a keyed event fanout. Handlers are registered per event name
// and individually removable through their Subscription, so a consumer can
// detach one listener without disturbing the others on the same event.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
}

type handlerEntry struct {
	id string
	fn EventHandler
}

type subscription struct {
	emitter *Emitter
	event   string
	id      string
	once    sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.emitter.remove(s.event, s.id)
	})
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]handlerEntry)}
}

// On registers a handler for event and returns its Subscription.
func (e *Emitter) On(event string, fn EventHandler) Subscription {
	sub := &subscription{emitter: e, event: event, id: uuid.NewString()}
	if fn == nil {
		return sub
	}
	e.mu.Lock()
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: sub.id, fn: fn})
	e.mu.Unlock()
	return sub
}

// Emit invokes every handler registered for event, in registration order.
func (e *Emitter) Emit(event string, data interface{}) {
	e.mu.RLock()
	entries := make([]handlerEntry, len(e.handlers[event]))
	copy(entries, e.handlers[event])
	e.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(data)
	}
}

// Off removes every handler for event.
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	delete(e.handlers, event)
	e.mu.Unlock()
}

func (e *Emitter) remove(event, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.handlers[event]
	for i, entry := range entries {
		if entry.id == id {
			e.handlers[event] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(e.handlers[event]) == 0 {
		delete(e.handlers, event)
	}
}
