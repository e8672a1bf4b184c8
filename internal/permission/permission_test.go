package permission

import (
	"testing"

	"github.com/dormduty/dormduty/internal/model"
)

type fakeMemberships map[int64]*model.Membership

func (f fakeMemberships) GetByID(id int64) (*model.Membership, error) {
	return f[id], nil
}

func TestHasRole(t *testing.T) {
	gate := NewGate(fakeMemberships{
		1: {ID: 1, RoomID: 10, Role: model.RoleAdmin, IsActive: true},
		2: {ID: 2, RoomID: 10, Role: model.RoleMember, IsActive: true},
		3: {ID: 3, RoomID: 10, Role: model.RoleMember, IsActive: false},
		4: {ID: 4, RoomID: 20, Role: model.RoleAdmin, IsActive: true},
	})

	tests := []struct {
		name         string
		membershipID int64
		roomID       int64
		role         string
		want         bool
	}{
		{"admin has admin", 1, 10, model.RoleAdmin, true},
		{"admin has member", 1, 10, model.RoleMember, true},
		{"member has member", 2, 10, model.RoleMember, true},
		{"member lacks admin", 2, 10, model.RoleAdmin, false},
		{"inactive has nothing", 3, 10, model.RoleMember, false},
		{"wrong room", 4, 10, model.RoleAdmin, false},
		{"unknown membership", 99, 10, model.RoleMember, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.HasRole(tt.membershipID, tt.roomID, tt.role)
			if err != nil {
				t.Fatalf("HasRole: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasRole = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasRoleUnknownRole(t *testing.T) {
	gate := NewGate(fakeMemberships{
		1: {ID: 1, RoomID: 10, Role: model.RoleAdmin, IsActive: true},
	})
	if _, err := gate.HasRole(1, 10, "owner"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestIsActiveMember(t *testing.T) {
	gate := NewGate(fakeMemberships{
		1: {ID: 1, RoomID: 10, Role: model.RoleMember, IsActive: true},
		2: {ID: 2, RoomID: 10, Role: model.RoleMember, IsActive: false},
	})

	ok, err := gate.IsActiveMember(1, 10)
	if err != nil || !ok {
		t.Errorf("IsActiveMember(active) = %v, %v, want true", ok, err)
	}
	ok, err = gate.IsActiveMember(2, 10)
	if err != nil || ok {
		t.Errorf("IsActiveMember(inactive) = %v, %v, want false", ok, err)
	}
}
