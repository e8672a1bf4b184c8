// Package workflow implements the chore lifecycle rules: who may submit and
// verify completions, how swap requests resolve, and which domain events each
// transition emits. Storage stays in internal/store; this package owns the
// policy.
package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dormduty/dormduty/internal/clock"
	"github.com/dormduty/dormduty/internal/event"
	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/store"
)

// ChoreRepository is the chore read/write surface the workflows need.
type ChoreRepository interface {
	GetByID(id int64) (*model.Chore, error)
	Create(c model.Chore) (*model.Chore, error)
	Update(c model.Chore) (*model.Chore, error)
	SoftDelete(id int64) error
}

// CompletionRepository is satisfied by *store.CompletionStore.
type CompletionRepository interface {
	CreatePending(choreID, submittedBy int64, photoURL *string, now time.Time) (*model.ChoreCompletion, error)
	CreateCompleted(choreID, submittedBy int64, photoURL *string, now time.Time) (*model.ChoreCompletion, error)
	GetByID(id int64) (*model.ChoreCompletion, error)
	Decide(completionID, verifierID int64, decision string, comment *string, now time.Time) (*model.ChoreVerification, error)
}

// RoleChecker is satisfied by *permission.Gate.
type RoleChecker interface {
	HasRole(membershipID, roomID int64, role string) (bool, error)
}

// Publisher is satisfied by *event.Bus.
type Publisher interface {
	Publish(e event.Event)
}

type CompletionWorkflow struct {
	chores      ChoreRepository
	completions CompletionRepository
	gate        RoleChecker
	bus         Publisher
	clock       clock.Clock
	logger      *slog.Logger
}

func NewCompletionWorkflow(chores ChoreRepository, completions CompletionRepository, gate RoleChecker, bus Publisher, clk clock.Clock, logger *slog.Logger) *CompletionWorkflow {
	return &CompletionWorkflow{
		chores:      chores,
		completions: completions,
		gate:        gate,
		bus:         bus,
		clock:       clk,
		logger:      logger,
	}
}

// Submit records that the submitter finished the chore. Approval-required
// chores get a pending completion awaiting an admin verdict; the rest
// complete immediately and stamp the chore.
func (w *CompletionWorkflow) Submit(choreID, submitterID int64, photoURL *string) (*model.ChoreCompletion, error) {
	chore, err := w.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("load chore: %w", err)
	}
	if chore == nil || !chore.IsActive {
		return nil, &NotFoundError{Msg: "chore not found"}
	}

	ok, err := w.gate.HasRole(submitterID, chore.RoomID, model.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, &PermissionError{Msg: "not an active member of this room"}
	}
	if !chore.IsAssignee(submitterID) {
		return nil, &PermissionError{Msg: "only an assignee can complete this chore"}
	}
	if chore.PhotoRequired && photoURL == nil {
		return nil, &ValidationError{Msg: "this chore requires a photo"}
	}

	now := w.clock.Now()
	var comp *model.ChoreCompletion
	if chore.ApprovalRequired {
		comp, err = w.completions.CreatePending(choreID, submitterID, photoURL, now)
		if errors.Is(err, store.ErrDuplicatePending) {
			return nil, &ConflictError{Msg: "a completion for this chore is already awaiting approval"}
		}
	} else {
		comp, err = w.completions.CreateCompleted(choreID, submitterID, photoURL, now)
	}
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}

	w.logger.Info("completion submitted",
		"chore_id", choreID, "membership_id", submitterID, "status", comp.Status)
	w.bus.Publish(event.Event{
		Type:         event.TypeCompletionSubmitted,
		RoomID:       chore.RoomID,
		ChoreID:      choreID,
		EntityID:     comp.ID,
		Status:       comp.Status,
		MembershipID: submitterID,
	})
	return comp, nil
}

// Verify records an admin verdict on a pending completion. Approving stamps
// the chore with the completion's submission time; rejecting reopens it.
func (w *CompletionWorkflow) Verify(completionID, verifierID int64, decision string, comment *string) (*model.ChoreVerification, error) {
	if decision != model.CompletionApproved && decision != model.CompletionRejected {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown decision %q", decision)}
	}

	comp, err := w.completions.GetByID(completionID)
	if err != nil {
		return nil, fmt.Errorf("load completion: %w", err)
	}
	if comp == nil {
		return nil, &NotFoundError{Msg: "completion not found"}
	}
	chore, err := w.chores.GetByID(comp.ChoreID)
	if err != nil {
		return nil, fmt.Errorf("load chore: %w", err)
	}
	if chore == nil {
		return nil, &NotFoundError{Msg: "chore not found"}
	}

	ok, err := w.gate.HasRole(verifierID, chore.RoomID, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, &PermissionError{Msg: "only a room admin can verify completions"}
	}

	v, err := w.completions.Decide(completionID, verifierID, decision, comment, w.clock.Now())
	if errors.Is(err, store.ErrCompletionNotPending) {
		return nil, &ConflictError{Msg: "completion has already been verified"}
	}
	if err != nil {
		return nil, fmt.Errorf("decide completion: %w", err)
	}
	if v == nil {
		return nil, &NotFoundError{Msg: "completion not found"}
	}

	w.logger.Info("completion verified",
		"completion_id", completionID, "membership_id", verifierID, "decision", decision)
	w.bus.Publish(event.Event{
		Type:         event.TypeCompletionVerified,
		RoomID:       chore.RoomID,
		ChoreID:      chore.ID,
		EntityID:     completionID,
		Status:       decision,
		MembershipID: comp.SubmittedBy,
	})
	return v, nil
}
