package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dormduty/dormduty/internal/database"
	"github.com/dormduty/dormduty/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedMember creates a user, a room owned by that user, and an active
// membership, returning the membership. Additional calls with the same roomID
// join that room instead of creating a new one.
func seedMember(t *testing.T, db *sql.DB, email, role string, roomID int64) (*model.Membership, int64) {
	t.Helper()
	us := NewUserStore(db)
	rs := NewRoomStore(db)
	ms := NewMembershipStore(db)

	u, err := us.Create(email, "Test "+email, "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if roomID == 0 {
		room, err := rs.Create("Test Room", "code-"+email, u.ID)
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		roomID = room.ID
	}
	m, err := ms.Create(u.ID, roomID, role)
	if err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return m, roomID
}

func seedChore(t *testing.T, db *sql.DB, roomID int64, assignees []int64) *model.Chore {
	t.Helper()
	cs := NewChoreStore(db)
	c, err := cs.Create(model.Chore{
		RoomID:                roomID,
		Name:                  "Dishes",
		Description:           "Wash and dry",
		Frequency:             "daily",
		StartDate:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ApprovalRequired:      true,
		AssignedMembershipIDs: assignees,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}
