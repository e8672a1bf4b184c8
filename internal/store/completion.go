package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dormduty/dormduty/internal/model"
)

// ErrDuplicatePending is returned when a chore already has a pending
// completion. Backed by the partial unique index, so two concurrent
// submissions cannot both get through.
var ErrDuplicatePending = errors.New("pending completion already exists for chore")

// ErrCompletionNotPending is returned when a verification decision races a
// prior one; the conditional update found the completion no longer pending.
var ErrCompletionNotPending = errors.New("completion is not pending")

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.ChoreCompletion, error) {
	var c model.ChoreCompletion
	var photoURL sql.NullString

	err := scanner.Scan(&c.ID, &c.ChoreID, &c.SubmittedBy, &photoURL, &c.Status, &c.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if photoURL.Valid {
		c.PhotoURL = &photoURL.String
	}
	return &c, nil
}

const completionCols = `id, chore_id, submitted_by, photo_url, status, submitted_at`

// CreatePending inserts a pending completion. The one-pending-per-chore
// invariant is enforced by the database in the same statement.
func (s *CompletionStore) CreatePending(choreID, submittedBy int64, photoURL *string, now time.Time) (*model.ChoreCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_completions (chore_id, submitted_by, photo_url, status, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		choreID, submittedBy, nullString(photoURL), model.CompletionPending, now.UTC(),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicatePending
	}
	if err != nil {
		return nil, fmt.Errorf("insert pending completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateCompleted records a no-approval completion and stamps the chore's
// last_completed_at in the same transaction.
func (s *CompletionStore) CreateCompleted(choreID, submittedBy int64, photoURL *string, now time.Time) (*model.ChoreCompletion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO chore_completions (chore_id, submitted_by, photo_url, status, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		choreID, submittedBy, nullString(photoURL), model.CompletionCompleted, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE chores SET last_completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		now.UTC(), choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("stamp last completed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *CompletionStore) GetByID(id int64) (*model.ChoreCompletion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM chore_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *CompletionStore) PendingByChore(choreID int64) (*model.ChoreCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM chore_completions WHERE chore_id = ? AND status = ?`,
		choreID, model.CompletionPending,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending completion: %w", err)
	}
	return c, nil
}

func (s *CompletionStore) ListByChore(choreID int64) ([]model.ChoreCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM chore_completions WHERE chore_id = ? ORDER BY submitted_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

func (s *CompletionStore) ListPendingByRoom(roomID int64) ([]model.ChoreCompletion, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.chore_id, c.submitted_by, c.photo_url, c.status, c.submitted_at
		 FROM chore_completions c
		 JOIN chores ch ON ch.id = c.chore_id
		 WHERE ch.room_id = ? AND c.status = ?
		 ORDER BY c.submitted_at ASC`,
		roomID, model.CompletionPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending by room: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

// Decide records an admin verdict on a pending completion. The status flip,
// the verification row, and (on approval) the chore's last_completed_at all
// commit together or not at all. The compare-and-set on status guards
// double verification.
func (s *CompletionStore) Decide(completionID, verifierID int64, decision string, comment *string, now time.Time) (*model.ChoreVerification, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+completionCols+` FROM chore_completions WHERE id = ?`, completionID)
	comp, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE chore_completions SET status = ? WHERE id = ? AND status = ?`,
		decision, completionID, model.CompletionPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update completion status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrCompletionNotPending
	}

	vres, err := tx.Exec(
		`INSERT INTO chore_verifications (completion_id, verified_by, decision, comment, decided_at) VALUES (?, ?, ?, ?, ?)`,
		completionID, verifierID, decision, nullString(comment), now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert verification: %w", err)
	}
	vid, err := vres.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if decision == model.CompletionApproved {
		// The work happened at submission time, not decision time.
		_, err = tx.Exec(
			`UPDATE chores SET last_completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			comp.SubmittedAt.UTC(), comp.ChoreID,
		)
		if err != nil {
			return nil, fmt.Errorf("stamp last completed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetVerification(vid)
}

func scanVerification(scanner interface{ Scan(...any) error }) (*model.ChoreVerification, error) {
	var v model.ChoreVerification
	var comment sql.NullString
	err := scanner.Scan(&v.ID, &v.CompletionID, &v.VerifiedBy, &v.Decision, &comment, &v.DecidedAt)
	if err != nil {
		return nil, err
	}
	if comment.Valid {
		v.Comment = &comment.String
	}
	return &v, nil
}

const verificationCols = `id, completion_id, verified_by, decision, comment, decided_at`

func (s *CompletionStore) GetVerification(id int64) (*model.ChoreVerification, error) {
	row := s.db.QueryRow(`SELECT `+verificationCols+` FROM chore_verifications WHERE id = ?`, id)
	v, err := scanVerification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return v, nil
}

func (s *CompletionStore) GetVerificationByCompletion(completionID int64) (*model.ChoreVerification, error) {
	row := s.db.QueryRow(
		`SELECT `+verificationCols+` FROM chore_verifications WHERE completion_id = ?`, completionID,
	)
	v, err := scanVerification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verification by completion: %w", err)
	}
	return v, nil
}

func collectCompletions(rows *sql.Rows) ([]model.ChoreCompletion, error) {
	var completions []model.ChoreCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
