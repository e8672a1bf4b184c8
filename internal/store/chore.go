package store

import (
	"database/sql"
	"fmt"

	"github.com/dormduty/dormduty/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var freqValue, dayOfWeek sql.NullInt64
	var timing sql.NullString
	var lastCompleted sql.NullTime
	var approvalRequired, photoRequired, isActive int

	err := scanner.Scan(
		&c.ID, &c.RoomID, &c.Name, &c.Description,
		&c.Frequency, &freqValue, &dayOfWeek, &timing, &c.StartDate,
		&approvalRequired, &photoRequired, &isActive, &lastCompleted,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if freqValue.Valid {
		v := int(freqValue.Int64)
		c.FrequencyValue = &v
	}
	if dayOfWeek.Valid {
		v := int(dayOfWeek.Int64)
		c.DayOfWeek = &v
	}
	if timing.Valid {
		c.Timing = &timing.String
	}
	if lastCompleted.Valid {
		c.LastCompletedAt = &lastCompleted.Time
	}
	c.ApprovalRequired = approvalRequired != 0
	c.PhotoRequired = photoRequired != 0
	c.IsActive = isActive != 0
	return &c, nil
}

const choreCols = `id, room_id, name, description, frequency, frequency_value, day_of_week, timing, start_date, approval_required, photo_required, is_active, last_completed_at, created_at, updated_at`

// Create inserts the chore and its ordered assignment set in one transaction.
func (s *ChoreStore) Create(c model.Chore) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO chores (room_id, name, description, frequency, frequency_value, day_of_week, timing, start_date, approval_required, photo_required, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		c.RoomID, c.Name, c.Description, c.Frequency,
		nullInt(c.FrequencyValue), nullInt(c.DayOfWeek), nullString(c.Timing),
		c.StartDate, boolInt(c.ApprovalRequired), boolInt(c.PhotoRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceAssignments(tx, id, c.AssignedMembershipIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}

	c.AssignedMembershipIDs, err = s.Assignments(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChoreStore) ListByRoom(roomID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE room_id = ? AND is_active = 1 ORDER BY name ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	chores, err := collectChores(rows)
	if err != nil {
		return nil, err
	}
	return s.attachAssignments(chores)
}

// ListActive returns every active chore across all rooms, for the reminder
// scheduler.
func (s *ChoreStore) ListActive() ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active chores: %w", err)
	}
	defer rows.Close()

	chores, err := collectChores(rows)
	if err != nil {
		return nil, err
	}
	return s.attachAssignments(chores)
}

// Update rewrites the chore's editable fields and its assignment set in one
// transaction. last_completed_at is workflow-owned and left untouched.
func (s *ChoreStore) Update(c model.Chore) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE chores SET name = ?, description = ?, frequency = ?, frequency_value = ?, day_of_week = ?, timing = ?, start_date = ?, approval_required = ?, photo_required = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Name, c.Description, c.Frequency,
		nullInt(c.FrequencyValue), nullInt(c.DayOfWeek), nullString(c.Timing),
		c.StartDate, boolInt(c.ApprovalRequired), boolInt(c.PhotoRequired), c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}

	if err := replaceAssignments(tx, c.ID, c.AssignedMembershipIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(c.ID)
}

// SoftDelete deactivates the chore; history stays intact.
func (s *ChoreStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE chores SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete chore: %w", err)
	}
	return nil
}

// Assignments returns the chore's assignee memberships in position order.
func (s *ChoreStore) Assignments(choreID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT membership_id FROM chore_assignments WHERE chore_id = ? ORDER BY position ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func replaceAssignments(tx *sql.Tx, choreID int64, membershipIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM chore_assignments WHERE chore_id = ?`, choreID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	for pos, mid := range membershipIDs {
		_, err := tx.Exec(
			`INSERT INTO chore_assignments (chore_id, membership_id, position) VALUES (?, ?, ?)`,
			choreID, mid, pos,
		)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) attachAssignments(chores []model.Chore) ([]model.Chore, error) {
	for i := range chores {
		ids, err := s.Assignments(chores[i].ID)
		if err != nil {
			return nil, err
		}
		chores[i].AssignedMembershipIDs = ids
	}
	return chores, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
