package store

import (
	"database/sql"
	"fmt"

	"github.com/dormduty/dormduty/internal/model"
)

type MembershipStore struct {
	db *sql.DB
}

func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func scanMembership(scanner interface{ Scan(...any) error }) (*model.Membership, error) {
	var m model.Membership
	var isActive int
	err := scanner.Scan(&m.ID, &m.UserID, &m.RoomID, &m.Role, &isActive, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	m.IsActive = isActive != 0
	return &m, nil
}

const membershipCols = `id, user_id, room_id, role, is_active, joined_at`

func (s *MembershipStore) Create(userID, roomID int64, role string) (*model.Membership, error) {
	result, err := s.db.Exec(
		`INSERT INTO room_memberships (user_id, room_id, role) VALUES (?, ?, ?)`,
		userID, roomID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MembershipStore) GetByID(id int64) (*model.Membership, error) {
	row := s.db.QueryRow(`SELECT `+membershipCols+` FROM room_memberships WHERE id = ?`, id)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) GetByUserAndRoom(userID, roomID int64) (*model.Membership, error) {
	row := s.db.QueryRow(
		`SELECT `+membershipCols+` FROM room_memberships WHERE user_id = ? AND room_id = ?`,
		userID, roomID,
	)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership by user and room: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) ListByRoom(roomID int64) ([]model.Membership, error) {
	rows, err := s.db.Query(
		`SELECT `+membershipCols+` FROM room_memberships WHERE room_id = ? ORDER BY joined_at ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MembershipStore) UpdateRole(id int64, role string) (*model.Membership, error) {
	_, err := s.db.Exec(`UPDATE room_memberships SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.GetByID(id)
}

func (s *MembershipStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE room_memberships SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate membership: %w", err)
	}
	return nil
}
