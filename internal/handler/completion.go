package handler

import (
	"log/slog"
	"net/http"

	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/store"
	"github.com/dormduty/dormduty/internal/workflow"
)

type CompletionHandler struct {
	completions *workflow.CompletionWorkflow
	store       *store.CompletionStore
	choreStore  *store.ChoreStore
	members     *store.MembershipStore
	logger      *slog.Logger
}

func NewCompletionHandler(cw *workflow.CompletionWorkflow, cs *store.CompletionStore, chores *store.ChoreStore, members *store.MembershipStore, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{completions: cw, store: cs, choreStore: chores, members: members, logger: logger}
}

type submitRequest struct {
	PhotoURL *string `json:"photo_url"`
}

// Submit handles POST /api/chores/{id}/complete
func (h *CompletionHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	var req submitRequest
	// Empty body is fine; photo is optional unless the chore requires it.
	decodeValid(r, &req)

	comp, err := h.completions.Submit(choreID, actor.ID, req.PhotoURL)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comp)
}

// History handles GET /api/chores/{id}/completions
func (h *CompletionHandler) History(w http.ResponseWriter, r *http.Request) {
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

	completions, err := h.store.ListByChore(choreID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	if completions == nil {
		completions = []model.ChoreCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// ListPending handles GET /api/rooms/{id}/completions/pending
func (h *CompletionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	if membershipFor(w, r, h.members, roomID) == nil {
		return
	}

	pending, err := h.store.ListPendingByRoom(roomID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list pending completions")
		return
	}
	if pending == nil {
		pending = []model.ChoreCompletion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type verifyRequest struct {
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Comment  *string `json:"comment"`
}

// Verify handles POST /api/completions/{id}/verify
func (h *CompletionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	completionID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	comp, err := h.store.GetByID(completionID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get completion")
		return
	}
	if comp == nil {
		writeErr(w, http.StatusNotFound, "completion not found")
		return
	}
	chore, err := h.choreStore.GetByID(comp.ChoreID)
	if err != nil || chore == nil {
		writeErr(w, http.StatusNotFound, "chore not found")
		return
	}
	actor := membershipFor(w, r, h.members, chore.RoomID)
	if actor == nil {
		return
	}

	var req verifyRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "decision must be approved or rejected")
		return
	}

	v, err := h.completions.Verify(completionID, actor.ID, req.Decision, req.Comment)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
