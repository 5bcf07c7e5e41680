// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import "sync"

// Emitter is an in-process [Events] implementation.
//
// Deliveries are serialized: an emission reaches every listener before the
// next emission starts, so listeners observe changes in order. Listeners must
// not call Emit themselves.
type Emitter struct {
	dispatch sync.Mutex

	mu        sync.Mutex
	current   *Identity
	listeners map[uint64]Listener
	order     []uint64
	nextID    uint64
}

// NewEmitter creates an Emitter whose current state is "signed out".
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[uint64]Listener)}
}

// Subscribe registers listener and delivers the current identity to it.
func (e *Emitter) Subscribe(listener Listener) Subscription {
	e.dispatch.Lock()
	defer e.dispatch.Unlock()

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners[id] = listener
	e.order = append(e.order, id)
	current := e.current.Clone()
	e.mu.Unlock()

	listener(current)

	return &subscription{emitter: e, id: id}
}

// Emit records identity as current and delivers it to every listener.
func (e *Emitter) Emit(identity *Identity) {
	e.dispatch.Lock()
	defer e.dispatch.Unlock()

	e.mu.Lock()
	e.current = identity.Clone()
	targets := make([]Listener, 0, len(e.order))
	for _, id := range e.order {
		targets = append(targets, e.listeners[id])
	}
	e.mu.Unlock()

	for _, listener := range targets {
		listener(identity.Clone())
	}
}

// Current returns a copy of the last emitted identity.
func (e *Emitter) Current() *Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// Len reports the number of active subscriptions.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[id]; !ok {
		return
	}
	delete(e.listeners, id)
	for i, candidate := range e.order {
		if candidate == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

type subscription struct {
	emitter *Emitter
	id      uint64
	once    sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.emitter.remove(s.id) })
}
