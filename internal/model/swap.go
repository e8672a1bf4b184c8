package model

import "time"

// Swap request statuses. Everything but pending is terminal.
const (
	SwapPending   = "pending"
	SwapAccepted  = "accepted"
	SwapDeclined  = "declined"
	SwapCancelled = "cancelled"
)

type ChoreSwapRequest struct {
	ID             int64      `json:"id"`
	ChoreID        int64      `json:"chore_id"`
	FromMembership int64      `json:"from_membership"`
	ToMembership   int64      `json:"to_membership"`
	Message        *string    `json:"message"`
	Status         string     `json:"status"`
	RequestedAt    time.Time  `json:"requested_at"`
	RespondedAt    *time.Time `json:"responded_at"`
}
