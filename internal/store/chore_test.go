package store

import (
	"testing"
	"time"

	"github.com/dormduty/dormduty/internal/model"
)

func TestChoreCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleAdmin, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)

	two := 2
	monday := 1
	evening := "evening"
	chore, err := cs.Create(model.Chore{
		RoomID:                roomID,
		Name:                  "Trash",
		Description:           "Take out bins",
		Frequency:             "every_n_weeks",
		FrequencyValue:        &two,
		DayOfWeek:             &monday,
		Timing:                &evening,
		StartDate:             time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		ApprovalRequired:      true,
		PhotoRequired:         true,
		AssignedMembershipIDs: []int64{m2.ID, m1.ID},
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if chore.Name != "Trash" {
		t.Errorf("name = %q, want %q", chore.Name, "Trash")
	}
	if chore.FrequencyValue == nil || *chore.FrequencyValue != 2 {
		t.Errorf("frequency_value = %v, want 2", chore.FrequencyValue)
	}
	if chore.DayOfWeek == nil || *chore.DayOfWeek != 1 {
		t.Errorf("day_of_week = %v, want 1", chore.DayOfWeek)
	}
	if !chore.IsActive {
		t.Error("new chore should be active")
	}
	if chore.LastCompletedAt != nil {
		t.Errorf("last_completed_at should be nil, got %v", chore.LastCompletedAt)
	}

	got, err := cs.GetByID(chore.ID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if len(got.AssignedMembershipIDs) != 2 {
		t.Fatalf("expected 2 assignees, got %d", len(got.AssignedMembershipIDs))
	}
	// Assignment order is positional, not numeric.
	if got.AssignedMembershipIDs[0] != m2.ID || got.AssignedMembershipIDs[1] != m1.ID {
		t.Errorf("assignees = %v, want [%d %d]", got.AssignedMembershipIDs, m2.ID, m1.ID)
	}
	if got.PrimaryAssignee() != m2.ID {
		t.Errorf("primary assignee = %d, want %d", got.PrimaryAssignee(), m2.ID)
	}
}

func TestChoreGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)

	got, err := cs.GetByID(9999)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent chore")
	}
}

func TestChoreUpdateReplacesAssignments(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleAdmin, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)

	chore := seedChore(t, db, roomID, []int64{m1.ID})

	chore.Name = "Dishes and counters"
	chore.AssignedMembershipIDs = []int64{m2.ID}
	updated, err := cs.Update(*chore)
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Name != "Dishes and counters" {
		t.Errorf("name = %q, want %q", updated.Name, "Dishes and counters")
	}
	if len(updated.AssignedMembershipIDs) != 1 || updated.AssignedMembershipIDs[0] != m2.ID {
		t.Errorf("assignees = %v, want [%d]", updated.AssignedMembershipIDs, m2.ID)
	}
}

func TestChoreUpdatePreservesLastCompleted(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)
	comps := NewCompletionStore(db)
	m, roomID := seedMember(t, db, "a@test.com", model.RoleAdmin, 0)
	chore := seedChore(t, db, roomID, []int64{m.ID})

	now := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	if _, err := comps.CreateCompleted(chore.ID, m.ID, nil, now); err != nil {
		t.Fatalf("create completed: %v", err)
	}

	chore.Description = "Updated"
	updated, err := cs.Update(*chore)
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.LastCompletedAt == nil || !updated.LastCompletedAt.Equal(now) {
		t.Errorf("last_completed_at = %v, want %v", updated.LastCompletedAt, now)
	}
}

func TestChoreSoftDeleteHidesFromListing(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)
	comps := NewCompletionStore(db)
	m, roomID := seedMember(t, db, "a@test.com", model.RoleAdmin, 0)
	chore := seedChore(t, db, roomID, []int64{m.ID})

	if _, err := comps.CreateCompleted(chore.ID, m.ID, nil, time.Now().UTC()); err != nil {
		t.Fatalf("create completed: %v", err)
	}

	if err := cs.SoftDelete(chore.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	chores, err := cs.ListByRoom(roomID)
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 0 {
		t.Fatalf("expected 0 active chores, got %d", len(chores))
	}

	// History survives the delete.
	history, err := comps.ListByChore(chore.ID)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 completion after soft delete, got %d", len(history))
	}
}

func TestChoreListByRoomScoped(t *testing.T) {
	db := setupTestDB(t)
	cs := NewChoreStore(db)
	m1, room1 := seedMember(t, db, "a@test.com", model.RoleAdmin, 0)
	m2, room2 := seedMember(t, db, "b@test.com", model.RoleAdmin, 0)

	seedChore(t, db, room1, []int64{m1.ID})
	seedChore(t, db, room2, []int64{m2.ID})

	chores, err := cs.ListByRoom(room1)
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 1 {
		t.Fatalf("expected 1 chore in room, got %d", len(chores))
	}
	if chores[0].RoomID != room1 {
		t.Errorf("room_id = %d, want %d", chores[0].RoomID, room1)
	}
}
