// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/flight_recorder/internal/gps"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

// EventType names a session lifecycle event.
type EventType string

const (
	EventStarted EventType = "started"
	EventStatus  EventType = "status"
	EventEnded   EventType = "ended"
)

// Event is the JSON payload published over MQTT and the websocket.
type Event struct {
	Type   EventType       `json:"type"`
	Info   *session.Info   `json:"info,omitempty"`
	Fix    *gps.Fix        `json:"fix,omitempty"`
	Status *session.Status `json:"status,omitempty"`
	Result *session.Result `json:"result,omitempty"`
}

// EventBus implements session.Listener by queueing events and delivering
// them to subscribers on its own goroutine. The sampling goroutine never
// blocks on it: when the queue is full the event is dropped and counted.
type EventBus struct {
	events  chan Event
	dropped atomic.Int64

	// FixSource, when set, tags started events with the current position.
	FixSource func() (gps.Fix, bool)

	mu   sync.RWMutex
	subs []func(Event)
}

// NewEventBus returns a bus with room for size queued events.
func NewEventBus(size int) *EventBus {
	if size < 1 {
		size = 1
	}
	return &EventBus{events: make(chan Event, size)}
}

// Subscribe registers fn. Subscribers run sequentially on the Run goroutine.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

// Dropped returns how many events were discarded because the queue was full.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *EventBus) SessionStarted(info session.Info) {
	ev := Event{Type: EventStarted, Info: &info}
	if b.FixSource != nil {
		if fix, ok := b.FixSource(); ok {
			ev.Fix = &fix
		}
	}
	b.publish(ev)
}

func (b *EventBus) SessionStatus(st session.Status) {
	b.publish(Event{Type: EventStatus, Status: &st})
}

func (b *EventBus) SessionEnded(res session.Result) {
	b.publish(Event{Type: EventEnded, Result: &res})
}

func (b *EventBus) publish(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (b *EventBus) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-b.events:
			b.dispatch(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-b.events:
					b.dispatch(ev)
				default:
					return nil
				}
			}
		}
	}
}

func (b *EventBus) dispatch(ev Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
