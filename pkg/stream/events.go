package stream

import (
	"sync"
	"time"
)

// Event types
const (
	EventStateChanged = "state_changed"
	EventSnapshot     = "snapshot"

	// EventStatus carries the current state to a new subscriber.
	EventStatus = "status"
)

// Event describes a lifecycle change or a snapshot attempt.
type Event struct {
	Type     string    `json:"type"`
	State    State     `json:"state"`
	Previous State     `json:"previous"`
	Session  string    `json:"session,omitempty"`
	Path     string    `json:"path,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

const subscriberBuffer = 16

// broadcaster fans events out to subscribers. Slow subscribers miss
// events rather than blocking the scheduler.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]chan Event)
	}
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
