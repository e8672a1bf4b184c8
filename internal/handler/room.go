package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dormduty/dormduty/internal/auth"
	"github.com/dormduty/dormduty/internal/model"
	"github.com/dormduty/dormduty/internal/store"
)

type RoomHandler struct {
	rooms   *store.RoomStore
	members *store.MembershipStore
	logger  *slog.Logger
}

func NewRoomHandler(rooms *store.RoomStore, members *store.MembershipStore, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, members: members, logger: logger}
}

// membershipFor resolves the caller's active membership in the room, writing
// the error response itself when there is none.
func membershipFor(w http.ResponseWriter, r *http.Request, members *store.MembershipStore, roomID int64) *model.Membership {
	m, err := members.GetByUserAndRoom(auth.UserID(r.Context()), roomID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to resolve membership")
		return nil
	}
	if m == nil || !m.IsActive {
		writeErr(w, http.StatusForbidden, "not a member of this room")
		return nil
	}
	return m
}

type createRoomRequest struct {
	Name string `json:"name" validate:"required"`
}

// Create handles POST /api/rooms. The creator becomes the room's first admin.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	inviteCode := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	room, err := h.rooms.Create(strings.TrimSpace(req.Name), inviteCode, userID)
	if err != nil {
		h.logger.Error("create room", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	if _, err := h.members.Create(userID, room.ID, model.RoleAdmin); err != nil {
		h.logger.Error("create admin membership", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// Join handles POST /api/rooms/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invite_code is required")
		return
	}

	room, err := h.rooms.GetByInviteCode(strings.TrimSpace(req.InviteCode))
	if err != nil {
		h.logger.Error("lookup invite code", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	if room == nil {
		writeErr(w, http.StatusNotFound, "invalid invite code")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.members.GetByUserAndRoom(userID, room.ID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	if existing != nil {
		writeErr(w, http.StatusConflict, "already a member of this room")
		return
	}

	if _, err := h.members.Create(userID, room.ID, model.RoleMember); err != nil {
		h.logger.Error("create membership", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// List handles GET /api/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// Get handles GET /api/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	if membershipFor(w, r, h.members, roomID) == nil {
		return
	}

	room, err := h.rooms.GetByID(roomID)
	if err != nil || room == nil {
		writeErr(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Members handles GET /api/rooms/{id}/members
func (h *RoomHandler) Members(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	if membershipFor(w, r, h.members, roomID) == nil {
		return
	}

	members, err := h.members.ListByRoom(roomID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Membership{}
	}
	writeJSON(w, http.StatusOK, members)
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

// UpdateMemberRole handles PUT /api/rooms/{id}/members/{memberID}/role
func (h *RoomHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	roomID, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := membershipFor(w, r, h.members, roomID)
	if actor == nil {
		return
	}
	if actor.Role != model.RoleAdmin {
		writeErr(w, http.StatusForbidden, "only a room admin can change roles")
		return
	}

	var req updateRoleRequest
	if err := decodeValid(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "role must be admin or member")
		return
	}

	targetID, err := parsePathInt(r, "memberID")
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid member id")
		return
	}
	target, err := h.members.GetByID(targetID)
	if err != nil || target == nil || target.RoomID != roomID {
		writeErr(w, http.StatusNotFound, "member not found")
		return
	}

	updated, err := h.members.UpdateRole(targetID, req.Role)
	if err != nil {
		h.logger.Error("update role", "error", err)
		writeErr(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
