package engine

import (
	"sync"
	"time"

	"github.com/stemsi/exstem-practice/internal/model"
)

// EventType names a session event.
type EventType string

const (
	EventTick      EventType = "tick"
	EventStatus    EventType = "status"
	EventAnswer    EventType = "answer"
	EventNavigate  EventType = "navigate"
	EventFlag      EventType = "flag"
	EventError     EventType = "error"
	EventCompleted EventType = "completed"
)

// Event is published to subscribers whenever session state changes.
type Event struct {
	Type             EventType        `json:"type"`
	SessionID        string           `json:"session_id"`
	Status           Status           `json:"status"`
	RemainingSeconds int              `json:"remaining_seconds"`
	CurrentIndex     int              `json:"current_index"`
	QuestionID       string           `json:"question_id,omitempty"`
	OptionID         string           `json:"option_id,omitempty"`
	Flagged          *bool            `json:"flagged,omitempty"`
	Error            string           `json:"error,omitempty"`
	Result           *model.ResultSet `json:"result,omitempty"`
	At               time.Time        `json:"at"`
}

// broadcaster fans events out to subscribers without ever blocking the
// publisher; a slow subscriber loses events instead.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
