package model

import "time"

// Membership roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership is a user's role-bearing presence in one room. It is owned by
// room-membership management; the chore engine only reads it.
type Membership struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	RoomID   int64     `json:"room_id"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}
