package handler

import (
	"log/slog"
	"net/http"

	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/store"
	"github.com/dormduty/dormduty/internal/workflow"
)

type SwapHandler struct {
	swaps      *workflow.SwapWorkflow
	store      *store.SwapStore
	choreStore *store.ChoreStore
	members    *store.MembershipStore
	logger     *slog.Logger
}

func NewSwapHandler(sw *workflow.SwapWorkflow, ss *store.SwapStore, chores *store.ChoreStore, members *store.MembershipStore, logger *slog.Logger) *SwapHandler {
	return &SwapHandler{swaps: sw, store: ss, choreStore: chores, members: members, logger: logger}
}

type swapRequest struct {
	ToMembershipIDs []int64 `json:"to_membership_ids" validate:"required,min=1"`
	Message         *string `json:"message"`
}

// Request handles POST /api/chores/{id}/swaps
func (h *SwapHandler) Request(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.choreStore.GetByID(choreID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil || !chore.IsActive {
		writeErr(w, http.StatusNotFound, "chore not found")
		return
	}
	actor := membershipFor(w, r, h.members, chore.RoomID)
	if actor == nil {
		return
	}

	var req swapRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "to_membership_ids is required")
		return
	}

	requests, err := h.swaps.Request(choreID, actor.ID, req.ToMembershipIDs, req.Message)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requests)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

// Respond handles POST /api/swaps/{id}/respond
func (h *SwapHandler) Respond(w http.ResponseWriter, r *http.Request) {
	swapID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := h.actorForSwap(w, r, swapID)
	if actor == nil {
		return
	}

	var req respondRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	resolved, err := h.swaps.Respond(swapID, actor.ID, req.Accept)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// Cancel handles POST /api/swaps/{id}/cancel
func (h *SwapHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	swapID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := h.actorForSwap(w, r, swapID)
	if actor == nil {
		return
	}

	cancelled, err := h.swaps.Cancel(swapID, actor.ID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

// ListByChore handles GET /api/chores/{id}/swaps
func (h *SwapHandler) ListByChore(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.choreStore.GetByID(choreID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil {
		writeErr(w, http.StatusNotFound, "chore not found")
		return
	}
	if membershipFor(w, r, h.members, chore.RoomID) == nil {
		return
	}

	requests, err := h.store.ListByChore(choreID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list swap requests")
		return
	}
	if requests == nil {
		requests = []model.ChoreSwapRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Inbox handles GET /api/rooms/{id}/swaps — pending requests addressed to
// the caller's membership in this room.
func (h *SwapHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := membershipFor(w, r, h.members, roomID)
	if actor == nil {
		return
	}

	requests, err := h.store.ListForRecipient(actor.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list swap requests")
		return
	}
	if requests == nil {
		requests = []model.ChoreSwapRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// actorForSwap resolves the caller's membership in the room of the swap's
// chore, writing error responses itself.
func (h *SwapHandler) actorForSwap(w http.ResponseWriter, r *http.Request, swapID int64) *model.Membership {
	req, err := h.store.GetByID(swapID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get swap request")
		return nil
	}
	if req == nil {
		writeErr(w, http.StatusNotFound, "swap request not found")
		return nil
	}
	chore, err := h.choreStore.GetByID(req.ChoreID)
	if err != nil || chore == nil {
		writeErr(w, http.StatusNotFound, "chore not found")
		return nil
	}
	return membershipFor(w, r, h.members, chore.RoomID)
}
