package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dormduty/dormduty/internal/auth"
	"github.com/dormduty/dormduty/internal/event"
	"github.com/dormduty/dormduty/internal/store"
)

// Handle upgrades the connection and runs it as a hub client for the room in
// the ?room query parameter. Callers must be active members of that room.
func Handle(hub *Hub, members *store.MembershipStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := strconv.ParseInt(r.URL.Query().Get("room"), 10, 64)
		if err != nil {
			http.Error(w, "room query parameter required", http.StatusBadRequest)
			return
		}

		m, err := members.GetByUserAndRoom(auth.UserID(r.Context()), roomID)
		if err != nil || m == nil || !m.IsActive {
			http.Error(w, "not a member of this room", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, roomID)
		client.Run(r.Context())
	}
}

// Bridge pumps domain events from the bus into the hub until the context is
// cancelled.
func Bridge(ctx context.Context, bus *event.Bus, hub *Hub) {
	events, cancel := bus.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			hub.BroadcastRoom(e)
		}
	}
}
