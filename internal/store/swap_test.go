package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dormduty/dormduty/internal/model"
)

func TestSwapCreateFanOut(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	m3, _ := seedMember(t, db, "c@test.com", model.RoleMember, roomID)
	chore := seedChore(t, db, roomID, []int64{m1.ID})

	msg := "can anyone take this?"
	now := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	requests, err := ss.Create(chore.ID, m1.ID, []int64{m2.ID, m3.ID}, &msg, now)
	if err != nil {
		t.Fatalf("create swap requests: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	for _, r := range requests {
		if r.Status != model.SwapPending {
			t.Errorf("status = %q, want %q", r.Status, model.SwapPending)
		}
		if r.Message == nil || *r.Message != msg {
			t.Errorf("message = %v, want %q", r.Message, msg)
		}
		if r.RespondedAt != nil {
			t.Errorf("responded_at should be nil, got %v", r.RespondedAt)
		}
	}

	inbox, err := ss.ListForRecipient(m2.ID)
	if err != nil {
		t.Fatalf("list for recipient: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 request in inbox, got %d", len(inbox))
	}
}

func TestSwapAcceptTransfersAssignment(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	cs := NewChoreStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	m3, _ := seedMember(t, db, "c@test.com", model.RoleMember, roomID)

	cs2 := NewChoreStore(db)
	chore, err := cs2.Create(model.Chore{
		RoomID:                roomID,
		Name:                  "Bins",
		Frequency:             "weekly",
		StartDate:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AssignedMembershipIDs: []int64{m1.ID, m3.ID},
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	requests, err := ss.Create(chore.ID, m1.ID, []int64{m2.ID}, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("create swap request: %v", err)
	}

	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	accepted, err := ss.Accept(requests[0].ID, now)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != model.SwapAccepted {
		t.Errorf("status = %q, want %q", accepted.Status, model.SwapAccepted)
	}
	if accepted.RespondedAt == nil || !accepted.RespondedAt.Equal(now) {
		t.Errorf("responded_at = %v, want %v", accepted.RespondedAt, now)
	}

	// m2 takes m1's slot and keeps its position at the head of the rotation.
	got, _ := cs.GetByID(chore.ID)
	want := []int64{m2.ID, m3.ID}
	if len(got.AssignedMembershipIDs) != 2 ||
		got.AssignedMembershipIDs[0] != want[0] || got.AssignedMembershipIDs[1] != want[1] {
		t.Errorf("assignees = %v, want %v", got.AssignedMembershipIDs, want)
	}
}

func TestSwapAcceptWhenAlreadyAssigned(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	cs := NewChoreStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)

	chore, err := cs.Create(model.Chore{
		RoomID:                roomID,
		Name:                  "Mop",
		Frequency:             "weekly",
		StartDate:             time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AssignedMembershipIDs: []int64{m1.ID, m2.ID},
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	requests, _ := ss.Create(chore.ID, m1.ID, []int64{m2.ID}, nil, time.Now().UTC())
	if _, err := ss.Accept(requests[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// m2 was already on the chore, so m1's slot just goes away.
	got, _ := cs.GetByID(chore.ID)
	if len(got.AssignedMembershipIDs) != 1 || got.AssignedMembershipIDs[0] != m2.ID {
		t.Errorf("assignees = %v, want [%d]", got.AssignedMembershipIDs, m2.ID)
	}
}

func TestSwapAcceptCancelsSiblings(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	m3, _ := seedMember(t, db, "c@test.com", model.RoleMember, roomID)
	chore := seedChore(t, db, roomID, []int64{m1.ID})

	requests, _ := ss.Create(chore.ID, m1.ID, []int64{m2.ID, m3.ID}, nil, time.Now().UTC())
	if _, err := ss.Accept(requests[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("accept: %v", err)
	}

	sibling, _ := ss.GetByID(requests[1].ID)
	if sibling.Status != model.SwapCancelled {
		t.Errorf("sibling status = %q, want %q", sibling.Status, model.SwapCancelled)
	}
	if sibling.RespondedAt == nil {
		t.Error("sibling responded_at should be set")
	}
}

func TestSwapConcurrentAcceptOneWinner(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	m3, _ := seedMember(t, db, "c@test.com", model.RoleMember, roomID)
	m4, _ := seedMember(t, db, "d@test.com", model.RoleMember, roomID)
	chore := seedChore(t, db, roomID, []int64{m1.ID})

	requests, err := ss.Create(chore.ID, m1.ID, []int64{m2.ID, m3.ID, m4.ID}, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("create swap requests: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, r := range requests {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = ss.Accept(id, time.Now().UTC())
		}(i, r.ID)
	}
	wg.Wait()

	var winners, losers int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSwapNotPending):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if losers != len(requests)-1 {
		t.Errorf("losers = %d, want %d", losers, len(requests)-1)
	}

	// Exactly one accepted, the rest terminal.
	var accepted int
	all, _ := ss.ListByChore(chore.ID)
	for _, r := range all {
		if r.Status == model.SwapAccepted {
			accepted++
		}
		if r.Status == model.SwapPending {
			t.Errorf("request %d still pending after race", r.ID)
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
}

func TestSwapDeclineLeavesSiblingsOpen(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	m3, _ := seedMember(t, db, "c@test.com", model.RoleMember, roomID)
	chore := seedChore(t, db, roomID, []int64{m1.ID})

	requests, _ := ss.Create(chore.ID, m1.ID, []int64{m2.ID, m3.ID}, nil, time.Now().UTC())

	declined, err := ss.Decline(requests[0].ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != model.SwapDeclined {
		t.Errorf("status = %q, want %q", declined.Status, model.SwapDeclined)
	}

	sibling, _ := ss.GetByID(requests[1].ID)
	if sibling.Status != model.SwapPending {
		t.Errorf("sibling status = %q, want still pending", sibling.Status)
	}
}

func TestSwapCancelThenAccept(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)
	m1, roomID := seedMember(t, db, "a@test.com", model.RoleMember, 0)
	m2, _ := seedMember(t, db, "b@test.com", model.RoleMember, roomID)
	chore := seedChore(t, db, roomID, []int64{m1.ID})

	requests, _ := ss.Create(chore.ID, m1.ID, []int64{m2.ID}, nil, time.Now().UTC())
	if _, err := ss.Cancel(requests[0].ID, time.Now().UTC()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := ss.Accept(requests[0].ID, time.Now().UTC())
	if !errors.Is(err, ErrSwapNotPending) {
		t.Fatalf("accept after cancel err = %v, want ErrSwapNotPending", err)
	}
}

func TestSwapResolveNotFound(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSwapStore(db)

	got, err := ss.Decline(9999, time.Now().UTC())
	if err != nil {
		t.Fatalf("decline missing: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent request")
	}
}
