// Package stream implements the live progress channel described in
// spec §4.9: a per-search subscription that emits state snapshots until
// the search terminates or the subscriber disconnects.
package stream

import (
	"context"
	"time"

	"github.com/internal/searchcrawl/internal/state"
)

// EventType distinguishes the two outbound message kinds (spec §6).
type EventType string

const (
	EventStateUpdate EventType = "state_update"
	EventError       EventType = "error"
)

// Event is one message pushed to a subscriber.
type Event struct {
	Type      EventType       `json:"type"`
	Data      *state.Snapshot `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Publisher produces progress subscriptions backed by a state.Tracker.
type Publisher struct {
	Tracker      state.Tracker
	TickInterval time.Duration
}

// NewPublisher creates a Publisher with the given tick interval (spec
// default 500ms).
func NewPublisher(tracker state.Tracker, tickInterval time.Duration) *Publisher {
	if tickInterval <= 0 {
		tickInterval = 500 * time.Millisecond
	}
	return &Publisher{Tracker: tracker, TickInterval: tickInterval}
}

// Subscription delivers Events for one search_id until the search reaches
// a terminal state or ctx is cancelled (subscriber disconnect).
type Subscription struct {
	Events <-chan Event
}

// Subscribe starts an emission loop for id. Multiple subscribers per id
// are independent: each gets its own goroutine and ticker.
func (p *Publisher) Subscribe(ctx context.Context, id string) *Subscription {
	events := make(chan Event, 1)

	go func() {
		defer close(events)

		ticker := time.NewTicker(p.TickInterval)
		defer ticker.Stop()

		for {
			snap, found, err := p.Tracker.Get(ctx, id)
			if err != nil || !found {
				send(ctx, events, Event{
					Type:      EventError,
					Message:   "Search not found",
					Timestamp: time.Now().Unix(),
				})
				return
			}

			send(ctx, events, Event{
				Type:      EventStateUpdate,
				Data:      &snap,
				Timestamp: time.Now().Unix(),
			})

			if snap.Status.IsTerminal() {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return &Subscription{Events: events}
}

func send(ctx context.Context, ch chan<- Event, e Event) {
	select {
	case ch <- e:
	case <-ctx.Done():
	}
}
