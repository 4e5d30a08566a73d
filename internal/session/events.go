package session

import "sync"

// EventType names the kinds of events the aggregate publishes to
// subscribers.
type EventType int

const (
	EventStateChanged EventType = iota
	EventProgressUpdate
	EventDirectoryCompleted
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "StateChanged"
	case EventProgressUpdate:
		return "ProgressUpdate"
	case EventDirectoryCompleted:
		return "DirectoryCompleted"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one item on the broadcast stream. Only the fields relevant to
// Type are populated.
type Event struct {
	Type            EventType
	DirectoryIndex  int
	Progress        int
	Message         string
}

// eventBusCapacity is the per-subscriber buffer depth. A subscriber
// slower than this loses its oldest buffered events rather than blocking
// the publisher — the broadcast is best-effort lossy, not at-least-once.
const eventBusCapacity = 64

// bus fans events out to an unknown number of subscribers, each with its
// own bounded channel. When a subscriber's channel is full, its oldest
// buffered event is discarded to make room; other subscribers are
// unaffected and the publisher never blocks.
type bus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
}

func newBus() *bus {
	return &bus{subscribers: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function.
func (b *bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, eventBusCapacity)
	b.subscribers[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

// Publish fans ev out to every current subscriber, discarding the oldest
// buffered event of any subscriber whose channel is currently full.
func (b *bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
