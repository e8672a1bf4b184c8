package event

import (
	"log/slog"
	"sync"
)

// Type identifies a domain event.
type Type string

const (
	TypeChoreCreated        Type = "chore_created"
	TypeChoreUpdated        Type = "chore_updated"
	TypeChoreDeleted        Type = "chore_deleted"
	TypeCompletionSubmitted Type = "completion_submitted"
	TypeCompletionVerified  Type = "completion_verified"
	TypeSwapRequested       Type = "swap_requested"
	TypeSwapResolved        Type = "swap_resolved"
)

// Event carries the IDs of the affected entities plus the new status.
// Delivery is best-effort; subscribers that need current state re-read it.
type Event struct {
	Type         Type   `json:"type"`
	RoomID       int64  `json:"room_id"`
	ChoreID      int64  `json:"chore_id,omitempty"`
	EntityID     int64  `json:"entity_id,omitempty"`
	Status       string `json:"status,omitempty"`
	MembershipID int64  `json:"membership_id,omitempty"`
}

// Bus fans domain events out to in-process subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given channel buffer and returns
// the channel plus a cancel function that removes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber buffer full — drop rather than block the workflow
			b.logger.Warn("event dropped", "type", e.Type, "room_id", e.RoomID)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
