package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dormduty/dormduty/internal/store"
	"github.com/dormduty/dormduty/internal/workflow"
)

type ChoreHandler struct {
	chores   *workflow.ChoreWorkflow
	store    *store.ChoreStore
	members  *store.MembershipStore
	logger   *slog.Logger
}

func NewChoreHandler(chores *workflow.ChoreWorkflow, cs *store.ChoreStore, members *store.MembershipStore, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: chores, store: cs, members: members, logger: logger}
}

type choreRequest struct {
	Name                  string  `json:"name" validate:"required"`
	Description           string  `json:"description"`
	Frequency             string  `json:"frequency" validate:"required"`
	FrequencyValue        *int    `json:"frequency_value"`
	DayOfWeek             *int    `json:"day_of_week"`
	Timing                *string `json:"timing"`
	StartDate             string  `json:"start_date" validate:"required"`
	ApprovalRequired      bool    `json:"approval_required"`
	PhotoRequired         bool    `json:"photo_required"`
	AssignedMembershipIDs []int64 `json:"assigned_membership_ids"`
}

func (req *choreRequest) toInput() (workflow.ChoreInput, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return workflow.ChoreInput{}, err
	}
	return workflow.ChoreInput{
		Name:                  strings.TrimSpace(req.Name),
		Description:           req.Description,
		Frequency:             req.Frequency,
		FrequencyValue:        req.FrequencyValue,
		DayOfWeek:             req.DayOfWeek,
		Timing:                req.Timing,
		StartDate:             startDate,
		ApprovalRequired:      req.ApprovalRequired,
		PhotoRequired:         req.PhotoRequired,
		AssignedMembershipIDs: req.AssignedMembershipIDs,
	}, nil
}

// Create handles POST /api/rooms/{id}/chores
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := membershipFor(w, r, h.members, roomID)
	if actor == nil {
		return
	}

	var req choreRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "name, frequency, and start_date are required")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	chore, err := h.chores.Create(roomID, actor.ID, in)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chore)
}

// List handles GET /api/rooms/{id}/chores
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	if membershipFor(w, r, h.members, roomID) == nil {
		return
	}

	chores, err := h.chores.ListWithDue(roomID)
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []workflow.ChoreWithDue{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// Get handles GET /api/chores/{id}
func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.store.GetByID(id)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil || !chore.IsActive {
		writeErr(w, http.StatusNotFound, "chore not found")
		return
	}
	if membershipFor(w, r, h.members, chore.RoomID) == nil {
		return
	}

	due, err := h.chores.DueStatus(*chore)
	if err != nil {
		h.logger.Error("due status", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	writeJSON(w, http.StatusOK, workflow.ChoreWithDue{
		Chore:     *chore,
		NextDueAt: due.NextDueAt,
		Overdue:   due.Overdue,
	})
}

// Update handles PUT /api/chores/{id}
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.store.GetByID(id)
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

	var req choreRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "name, frequency, and start_date are required")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	updated, err := h.chores.Update(id, actor.ID, in)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/chores/{id}
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	chore, err := h.store.GetByID(id)
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

	if err := h.chores.Delete(id, actor.ID); err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
