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

// SwapRepository is satisfied by *store.SwapStore.
type SwapRepository interface {
	Create(choreID, fromMembership int64, toMemberships []int64, message *string, now time.Time) ([]model.ChoreSwapRequest, error)
	GetByID(id int64) (*model.ChoreSwapRequest, error)
	Accept(swapID int64, now time.Time) (*model.ChoreSwapRequest, error)
	Decline(swapID int64, now time.Time) (*model.ChoreSwapRequest, error)
	Cancel(swapID int64, now time.Time) (*model.ChoreSwapRequest, error)
}

type SwapWorkflow struct {
	chores ChoreRepository
	swaps  SwapRepository
	gate   RoleChecker
	bus    Publisher
	clock  clock.Clock
	logger *slog.Logger
}

func NewSwapWorkflow(chores ChoreRepository, swaps SwapRepository, gate RoleChecker, bus Publisher, clk clock.Clock, logger *slog.Logger) *SwapWorkflow {
	return &SwapWorkflow{
		chores: chores,
		swaps:  swaps,
		gate:   gate,
		bus:    bus,
		clock:  clk,
		logger: logger,
	}
}

// Request fans a swap out to one or more recipients. Each recipient gets an
// independent pending request; the first acceptance wins and cancels the
// rest.
func (w *SwapWorkflow) Request(choreID, requesterID int64, recipientIDs []int64, message *string) ([]model.ChoreSwapRequest, error) {
	if len(recipientIDs) == 0 {
		return nil, &ValidationError{Msg: "swap request needs at least one recipient"}
	}

	chore, err := w.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("load chore: %w", err)
	}
	if chore == nil || !chore.IsActive {
		return nil, &NotFoundError{Msg: "chore not found"}
	}
	if !chore.IsAssignee(requesterID) {
		return nil, &PermissionError{Msg: "only an assignee can request a swap"}
	}

	seen := make(map[int64]bool, len(recipientIDs))
	for _, rid := range recipientIDs {
		if rid == requesterID {
			return nil, &ValidationError{Msg: "cannot request a swap with yourself"}
		}
		if seen[rid] {
			return nil, &ValidationError{Msg: "duplicate recipient"}
		}
		seen[rid] = true

		ok, err := w.gate.HasRole(rid, chore.RoomID, model.RoleMember)
		if err != nil {
			return nil, fmt.Errorf("check recipient: %w", err)
		}
		if !ok {
			return nil, &ValidationError{Msg: "recipient is not an active member of this room"}
		}
	}

	requests, err := w.swaps.Create(choreID, requesterID, recipientIDs, message, w.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("create swap requests: %w", err)
	}

	w.logger.Info("swap requested",
		"chore_id", choreID, "membership_id", requesterID, "recipients", len(recipientIDs))
	for _, r := range requests {
		w.bus.Publish(event.Event{
			Type:         event.TypeSwapRequested,
			RoomID:       chore.RoomID,
			ChoreID:      choreID,
			EntityID:     r.ID,
			Status:       r.Status,
			MembershipID: r.ToMembership,
		})
	}
	return requests, nil
}

// Respond accepts or declines a pending request on behalf of its recipient.
// Acceptance transfers the assignment and cancels sibling requests; a
// response that loses the race gets a conflict.
func (w *SwapWorkflow) Respond(swapID, responderID int64, accept bool) (*model.ChoreSwapRequest, error) {
	req, err := w.swaps.GetByID(swapID)
	if err != nil {
		return nil, fmt.Errorf("load swap request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Msg: "swap request not found"}
	}
	if req.ToMembership != responderID {
		return nil, &PermissionError{Msg: "only the recipient can respond to this request"}
	}

	var resolved *model.ChoreSwapRequest
	if accept {
		resolved, err = w.swaps.Accept(swapID, w.clock.Now())
	} else {
		resolved, err = w.swaps.Decline(swapID, w.clock.Now())
	}
	if errors.Is(err, store.ErrSwapNotPending) {
		return nil, &ConflictError{Msg: "swap request is no longer available"}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve swap request: %w", err)
	}
	if resolved == nil {
		return nil, &NotFoundError{Msg: "swap request not found"}
	}

	w.logger.Info("swap resolved",
		"swap_id", swapID, "membership_id", responderID, "status", resolved.Status)
	w.bus.Publish(event.Event{
		Type:         event.TypeSwapResolved,
		RoomID:       w.roomIDFor(req.ChoreID),
		ChoreID:      req.ChoreID,
		EntityID:     swapID,
		Status:       resolved.Status,
		MembershipID: req.FromMembership,
	})
	return resolved, nil
}

// Cancel withdraws a pending request. Only the original requester may cancel.
func (w *SwapWorkflow) Cancel(swapID, requesterID int64) (*model.ChoreSwapRequest, error) {
	req, err := w.swaps.GetByID(swapID)
	if err != nil {
		return nil, fmt.Errorf("load swap request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Msg: "swap request not found"}
	}
	if req.FromMembership != requesterID {
		return nil, &PermissionError{Msg: "only the requester can cancel this request"}
	}

	cancelled, err := w.swaps.Cancel(swapID, w.clock.Now())
	if errors.Is(err, store.ErrSwapNotPending) {
		return nil, &ConflictError{Msg: "swap request is no longer pending"}
	}
	if err != nil {
		return nil, fmt.Errorf("cancel swap request: %w", err)
	}
	if cancelled == nil {
		return nil, &NotFoundError{Msg: "swap request not found"}
	}

	w.logger.Info("swap cancelled", "swap_id", swapID, "membership_id", requesterID)
	w.bus.Publish(event.Event{
		Type:         event.TypeSwapResolved,
		RoomID:       w.roomIDFor(req.ChoreID),
		ChoreID:      req.ChoreID,
		EntityID:     swapID,
		Status:       cancelled.Status,
		MembershipID: req.FromMembership,
	})
	return cancelled, nil
}

func (w *SwapWorkflow) roomIDFor(choreID int64) int64 {
	chore, err := w.chores.GetByID(choreID)
	if err != nil || chore == nil {
		return 0
	}
	return chore.RoomID
}
