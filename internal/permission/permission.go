// Package permission decides what a room membership may do. Admins satisfy
// every member-level check; deactivated memberships satisfy none.
package permission

import (
	"fmt"

	"github.com/dormduty/dormduty/internal/model"
)

// MembershipSource is the read surface the gate needs. *store.MembershipStore
// satisfies it.
type MembershipSource interface {
	GetByID(id int64) (*model.Membership, error)
}

type Gate struct {
	memberships MembershipSource
}

func NewGate(memberships MembershipSource) *Gate {
	return &Gate{memberships: memberships}
}

// HasRole reports whether the membership is active in the given room and
// holds at least the required role. Admin implies member.
func (g *Gate) HasRole(membershipID, roomID int64, role string) (bool, error) {
	m, err := g.memberships.GetByID(membershipID)
	if err != nil {
		return false, fmt.Errorf("load membership: %w", err)
	}
	if m == nil || !m.IsActive || m.RoomID != roomID {
		return false, nil
	}
	switch role {
	case model.RoleAdmin:
		return m.Role == model.RoleAdmin, nil
	case model.RoleMember:
		return m.Role == model.RoleAdmin || m.Role == model.RoleMember, nil
	default:
		return false, fmt.Errorf("unknown role %q", role)
	}
}

// IsActiveMember reports whether the membership is active in the given room,
// regardless of role.
func (g *Gate) IsActiveMember(membershipID, roomID int64) (bool, error) {
	return g.HasRole(membershipID, roomID, model.RoleMember)
}
