package store

import (
	"database/sql"
	"fmt"

	"github.com/dormduty/dormduty/internal/model"
)

type RoomStore struct {
	db *sql.DB
}

func NewRoomStore(db *sql.DB) *RoomStore {
	return &RoomStore{db: db}
}

func scanRoom(scanner interface{ Scan(...any) error }) (*model.Room, error) {
	var r model.Room
	err := scanner.Scan(&r.ID, &r.Name, &r.InviteCode, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roomCols = `id, name, invite_code, created_by, created_at, updated_at`

func (s *RoomStore) Create(name, inviteCode string, createdBy int64) (*model.Room, error) {
	result, err := s.db.Exec(
		`INSERT INTO rooms (name, invite_code, created_by) VALUES (?, ?, ?)`,
		name, inviteCode, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoomStore) GetByID(id int64) (*model.Room, error) {
	row := s.db.QueryRow(`SELECT `+roomCols+` FROM rooms WHERE id = ?`, id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return r, nil
}

func (s *RoomStore) GetByInviteCode(code string) (*model.Room, error) {
	row := s.db.QueryRow(`SELECT `+roomCols+` FROM rooms WHERE invite_code = ?`, code)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room by invite code: %w", err)
	}
	return r, nil
}

func (s *RoomStore) ListForUser(userID int64) ([]model.Room, error) {
	rows, err := s.db.Query(
		`SELECT `+roomColsPrefixed+` FROM rooms r
		 JOIN room_memberships m ON m.room_id = r.id
		 WHERE m.user_id = ? AND m.is_active = 1
		 ORDER BY r.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms for user: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

const roomColsPrefixed = `r.id, r.name, r.invite_code, r.created_by, r.created_at, r.updated_at`
