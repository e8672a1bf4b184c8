package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dormduty/dormduty/internal/event"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, roomID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		roomID: roomID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastRoomScoped(t *testing.T) {
	hub := NewHub(slog.Default())

	inRoom := mockClient(hub, 1)
	otherRoom := mockClient(hub, 2)
	hub.Register(inRoom)
	hub.Register(otherRoom)

	hub.BroadcastRoom(event.Event{
		Type:    event.TypeCompletionSubmitted,
		RoomID:  1,
		ChoreID: 42,
		Status:  "pending",
	})

	select {
	case data := <-inRoom.send:
		var got event.Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != event.TypeCompletionSubmitted {
			t.Errorf("type = %s, want %s", got.Type, event.TypeCompletionSubmitted)
		}
		if got.ChoreID != 42 {
			t.Errorf("chore_id = %d, want 42", got.ChoreID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}

	select {
	case <-otherRoom.send:
		t.Fatal("client in another room should not receive the event")
	default:
	}

	if got := hub.RoomClientCount(1); got != 1 {
		t.Errorf("RoomClientCount(1) = %d, want 1", got)
	}

	hub.Unregister(inRoom)
	hub.Unregister(otherRoom)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.BroadcastRoom(event.Event{Type: event.TypeChoreUpdated, RoomID: 1})
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastRoom(event.Event{Type: event.TypeChoreUpdated, RoomID: 1, ChoreID: int64(i)})
	}

	// This should drop the message, not panic or block
	hub.BroadcastRoom(event.Event{Type: event.TypeChoreUpdated, RoomID: 1, ChoreID: 999})

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, 1)
			hub.Register(c)
			hub.BroadcastRoom(event.Event{Type: event.TypeChoreUpdated, RoomID: 1})
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
