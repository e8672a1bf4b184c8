package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dormduty/dormduty/internal/clock"
	"github.com/dormduty/dormduty/internal/event"
	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/recurrence"
)

// ChoreLister extends ChoreRepository with room-scoped listing.
type ChoreLister interface {
	ChoreRepository
	ListByRoom(roomID int64) ([]model.Chore, error)
}

// ChoreInput carries the editable fields for creating or updating a chore.
type ChoreInput struct {
	Name                  string
	Description           string
	Frequency             string
	FrequencyValue        *int
	DayOfWeek             *int
	Timing                *string
	StartDate             time.Time
	ApprovalRequired      bool
	PhotoRequired         bool
	AssignedMembershipIDs []int64
}

// ChoreWithDue pairs a chore with its computed schedule state.
type ChoreWithDue struct {
	model.Chore
	NextDueAt *time.Time `json:"next_due_at"`
	Overdue   bool       `json:"overdue"`
}

type ChoreWorkflow struct {
	chores ChoreLister
	gate   RoleChecker
	bus    Publisher
	clock  clock.Clock
	logger *slog.Logger
}

func NewChoreWorkflow(chores ChoreLister, gate RoleChecker, bus Publisher, clk clock.Clock, logger *slog.Logger) *ChoreWorkflow {
	return &ChoreWorkflow{
		chores: chores,
		gate:   gate,
		bus:    bus,
		clock:  clk,
		logger: logger,
	}
}

func (w *ChoreWorkflow) validate(roomID int64, in ChoreInput) error {
	if in.Name == "" {
		return &ValidationError{Msg: "name is required"}
	}
	if _, err := recurrence.ParseRule(in.Frequency, in.FrequencyValue, in.DayOfWeek); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if in.PhotoRequired && !in.ApprovalRequired {
		return &ValidationError{Msg: "photo proof requires approval to be enabled"}
	}
	if in.StartDate.IsZero() {
		return &ValidationError{Msg: "start date is required"}
	}
	for _, mid := range in.AssignedMembershipIDs {
		ok, err := w.gate.HasRole(mid, roomID, model.RoleMember)
		if err != nil {
			return fmt.Errorf("check assignee: %w", err)
		}
		if !ok {
			return &ValidationError{Msg: "assignee is not an active member of this room"}
		}
	}
	return nil
}

// Create adds a chore to the room. Only room admins may create chores.
func (w *ChoreWorkflow) Create(roomID, actorID int64, in ChoreInput) (*model.Chore, error) {
	ok, err := w.gate.HasRole(actorID, roomID, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, &PermissionError{Msg: "only a room admin can create chores"}
	}
	if err := w.validate(roomID, in); err != nil {
		return nil, err
	}

	chore, err := w.chores.Create(model.Chore{
		RoomID:                roomID,
		Name:                  in.Name,
		Description:           in.Description,
		Frequency:             in.Frequency,
		FrequencyValue:        in.FrequencyValue,
		DayOfWeek:             in.DayOfWeek,
		Timing:                in.Timing,
		StartDate:             in.StartDate,
		ApprovalRequired:      in.ApprovalRequired,
		PhotoRequired:         in.PhotoRequired,
		AssignedMembershipIDs: in.AssignedMembershipIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}

	w.logger.Info("chore created", "chore_id", chore.ID, "room_id", roomID, "membership_id", actorID)
	w.bus.Publish(event.Event{
		Type:         event.TypeChoreCreated,
		RoomID:       roomID,
		ChoreID:      chore.ID,
		MembershipID: actorID,
	})
	return chore, nil
}

// Update rewrites a chore's editable fields. Completion history and the
// last-completed stamp are untouched.
func (w *ChoreWorkflow) Update(choreID, actorID int64, in ChoreInput) (*model.Chore, error) {
	existing, err := w.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("load chore: %w", err)
	}
	if existing == nil || !existing.IsActive {
		return nil, &NotFoundError{Msg: "chore not found"}
	}

	ok, err := w.gate.HasRole(actorID, existing.RoomID, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, &PermissionError{Msg: "only a room admin can edit chores"}
	}
	if err := w.validate(existing.RoomID, in); err != nil {
		return nil, err
	}

	existing.Name = in.Name
	existing.Description = in.Description
	existing.Frequency = in.Frequency
	existing.FrequencyValue = in.FrequencyValue
	existing.DayOfWeek = in.DayOfWeek
	existing.Timing = in.Timing
	existing.StartDate = in.StartDate
	existing.ApprovalRequired = in.ApprovalRequired
	existing.PhotoRequired = in.PhotoRequired
	existing.AssignedMembershipIDs = in.AssignedMembershipIDs

	updated, err := w.chores.Update(*existing)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}

	w.logger.Info("chore updated", "chore_id", choreID, "membership_id", actorID)
	w.bus.Publish(event.Event{
		Type:         event.TypeChoreUpdated,
		RoomID:       existing.RoomID,
		ChoreID:      choreID,
		MembershipID: actorID,
	})
	return updated, nil
}

// Delete deactivates a chore, keeping its completion history.
func (w *ChoreWorkflow) Delete(choreID, actorID int64) error {
	existing, err := w.chores.GetByID(choreID)
	if err != nil {
		return fmt.Errorf("load chore: %w", err)
	}
	if existing == nil || !existing.IsActive {
		return &NotFoundError{Msg: "chore not found"}
	}

	ok, err := w.gate.HasRole(actorID, existing.RoomID, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return &PermissionError{Msg: "only a room admin can delete chores"}
	}

	if err := w.chores.SoftDelete(choreID); err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}

	w.logger.Info("chore deleted", "chore_id", choreID, "membership_id", actorID)
	w.bus.Publish(event.Event{
		Type:         event.TypeChoreDeleted,
		RoomID:       existing.RoomID,
		ChoreID:      choreID,
		MembershipID: actorID,
	})
	return nil
}

// ListWithDue returns the room's active chores annotated with their schedule
// state as of now. Callers must already be members; the handler checks.
func (w *ChoreWorkflow) ListWithDue(roomID int64) ([]ChoreWithDue, error) {
	chores, err := w.chores.ListByRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}

	now := w.clock.Now()
	out := make([]ChoreWithDue, 0, len(chores))
	for _, c := range chores {
		out = append(out, ChoreWithDue{Chore: c, NextDueAt: nil})
		rule, err := recurrence.ParseRule(c.Frequency, c.FrequencyValue, c.DayOfWeek)
		if err != nil {
			// A stored chore with an unparseable schedule is a bug; surface
			// it rather than hiding the chore.
			return nil, fmt.Errorf("chore %d has invalid schedule: %w", c.ID, err)
		}
		due := rule.DueStatus(c.StartDate, c.LastCompletedAt, now)
		out[len(out)-1].NextDueAt = due.NextDueAt
		out[len(out)-1].Overdue = due.Overdue
	}
	return out, nil
}

// DueStatus computes the schedule state for a single chore as of now.
func (w *ChoreWorkflow) DueStatus(c model.Chore) (recurrence.DueStatus, error) {
	rule, err := recurrence.ParseRule(c.Frequency, c.FrequencyValue, c.DayOfWeek)
	if err != nil {
		return recurrence.DueStatus{}, fmt.Errorf("chore %d has invalid schedule: %w", c.ID, err)
	}
	return rule.DueStatus(c.StartDate, c.LastCompletedAt, w.clock.Now()), nil
}
