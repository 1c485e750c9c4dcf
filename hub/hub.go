// Package hub fans events out to connected observers. One set of global
// subscribers (the admin dashboard) receives everything; per-session sets
// receive only their own session's events. Delivery is best-effort: a slow
// or broken subscriber is dropped, never waited on.
package hub

import (
	"sync"
)

// Event types pushed over the wire.
const (
	EventViolationAlert = "violation_alert"
	EventSessionUpdate  = "session_update"
)

// Event is one message fanned out to subscribers.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Conn is the transport side of a subscriber handle. WriteEvent is called
// from a single goroutine per subscription, in publish order.
type Conn interface {
	WriteEvent(Event) error
	Close() error
}

// sendBuffer bounds the per-subscriber queue. A subscriber that falls this
// far behind is dropped instead of blocking the publisher.
const sendBuffer = 32

// Subscription is one registered handle. It belongs to either the global
// set or one session's set.
type Subscription struct {
	hub       *Hub
	conn      Conn
	sessionID string // empty for global subscriptions
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

type Hub struct {
	mu       sync.RWMutex
	global   map[*Subscription]struct{}
	sessions map[string]map[*Subscription]struct{}
}

func New() *Hub {
	return &Hub{
		global:   make(map[*Subscription]struct{}),
		sessions: make(map[string]map[*Subscription]struct{}),
	}
}

// SubscribeGlobal registers a handle that receives every published event.
func (h *Hub) SubscribeGlobal(conn Conn) *Subscription {
	sub := h.newSubscription(conn, "")
	h.mu.Lock()
	h.global[sub] = struct{}{}
	h.mu.Unlock()
	go sub.writeLoop()
	return sub
}

// SubscribeSession registers a handle that receives only events for the
// given session id.
func (h *Hub) SubscribeSession(sessionID string, conn Conn) *Subscription {
	sub := h.newSubscription(conn, sessionID)
	h.mu.Lock()
	set, ok := h.sessions[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.sessions[sessionID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	go sub.writeLoop()
	return sub
}

func (h *Hub) newSubscription(conn Conn, sessionID string) *Subscription {
	return &Subscription{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		ch:        make(chan Event, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Unsubscribe removes the handle and closes its connection. Safe to call
// more than once and safe to race against an in-flight publish.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.remove(sub)
}

// PublishGlobal delivers the event to every current global subscriber.
func (h *Hub) PublishGlobal(ev Event) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.global))
	for sub := range h.global {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	h.deliver(subs, ev)
}

// PublishSession delivers the event to subscribers of that session only.
func (h *Hub) PublishSession(sessionID string, ev Event) {
	h.mu.RLock()
	set := h.sessions[sessionID]
	subs := make([]*Subscription, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	h.deliver(subs, ev)
}

func (h *Hub) deliver(subs []*Subscription, ev Event) {
	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			// Queue full: the subscriber is not keeping up. Drop it.
			h.remove(sub)
		}
	}
}

// CountActive reports the number of distinct connected handles across the
// global and session sets.
func (h *Hub) CountActive() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make(map[Conn]struct{})
	for sub := range h.global {
		conns[sub.conn] = struct{}{}
	}
	for _, set := range h.sessions {
		for sub := range set {
			conns[sub.conn] = struct{}{}
		}
	}
	return len(conns)
}

// Close drops every subscriber. Called at process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.global))
	for sub := range h.global {
		subs = append(subs, sub)
	}
	for _, set := range h.sessions {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.global, sub)
	if set, ok := h.sessions[sub.sessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.sessions, sub.sessionID)
		}
	}
	h.mu.Unlock()

	sub.closeOnce.Do(func() {
		close(sub.done)
		sub.conn.Close()
	})
}

// writeLoop is the single consumer of the subscription's queue, which
// keeps delivery to one handle in publish order.
func (s *Subscription) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.ch:
			if err := s.conn.WriteEvent(ev); err != nil {
				s.hub.remove(s)
				return
			}
		}
	}
}
