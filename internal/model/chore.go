package model

import "time"

// Completion statuses. Approved, rejected, and completed are terminal.
const (
	CompletionPending   = "pending"
	CompletionApproved  = "approved"
	CompletionRejected  = "rejected"
	CompletionCompleted = "completed"
)

type Chore struct {
	ID             int64      `json:"id"`
	RoomID         int64      `json:"room_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Frequency      string     `json:"frequency"`
	FrequencyValue *int       `json:"frequency_value"`
	DayOfWeek      *int       `json:"day_of_week"`
	Timing         *string    `json:"timing"`
	StartDate      time.Time  `json:"start_date"`
	// Ordered; the first entry is the primary assignee used for default
	// attribution.
	AssignedMembershipIDs []int64    `json:"assigned_membership_ids"`
	ApprovalRequired      bool       `json:"approval_required"`
	PhotoRequired         bool       `json:"photo_required"`
	IsActive              bool       `json:"is_active"`
	LastCompletedAt       *time.Time `json:"last_completed_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// PrimaryAssignee returns the first assignee, or 0 when unassigned.
func (c *Chore) PrimaryAssignee() int64 {
	if len(c.AssignedMembershipIDs) == 0 {
		return 0
	}
	return c.AssignedMembershipIDs[0]
}

// IsAssignee reports whether the membership is currently assigned.
func (c *Chore) IsAssignee(membershipID int64) bool {
	for _, id := range c.AssignedMembershipIDs {
		if id == membershipID {
			return true
		}
	}
	return false
}

type ChoreCompletion struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	SubmittedBy int64     `json:"submitted_by"`
	PhotoURL    *string   `json:"photo_url"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ChoreVerification is an admin's judgment on a pending completion. Written
// once, never updated.
type ChoreVerification struct {
	ID           int64     `json:"id"`
	CompletionID int64     `json:"completion_id"`
	VerifiedBy   int64     `json:"verified_by"`
	Decision     string    `json:"decision"`
	Comment      *string   `json:"comment"`
	DecidedAt    time.Time `json:"decided_at"`
}
