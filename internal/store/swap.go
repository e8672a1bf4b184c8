package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dormduty/dormduty/internal/model"
)

// ErrSwapNotPending is returned when a response or cancellation races a prior
// terminal transition; the conditional update found the request already
// resolved.
var ErrSwapNotPending = errors.New("swap request is not pending")

type SwapStore struct {
	db *sql.DB
}

func NewSwapStore(db *sql.DB) *SwapStore {
	return &SwapStore{db: db}
}

func scanSwap(scanner interface{ Scan(...any) error }) (*model.ChoreSwapRequest, error) {
	var r model.ChoreSwapRequest
	var message sql.NullString
	var respondedAt sql.NullTime

	err := scanner.Scan(
		&r.ID, &r.ChoreID, &r.FromMembership, &r.ToMembership,
		&message, &r.Status, &r.RequestedAt, &respondedAt,
	)
	if err != nil {
		return nil, err
	}
	if message.Valid {
		r.Message = &message.String
	}
	if respondedAt.Valid {
		r.RespondedAt = &respondedAt.Time
	}
	return &r, nil
}

const swapCols = `id, chore_id, from_membership, to_membership, message, status, requested_at, responded_at`

// Create inserts one pending request per recipient, all in one transaction,
// and returns them in recipient order.
func (s *SwapStore) Create(choreID, fromMembership int64, toMemberships []int64, message *string, now time.Time) ([]model.ChoreSwapRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(toMemberships))
	for _, to := range toMemberships {
		result, err := tx.Exec(
			`INSERT INTO chore_swap_requests (chore_id, from_membership, to_membership, message, status, requested_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			choreID, fromMembership, to, nullString(message), model.SwapPending, now.UTC(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert swap request: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	requests := make([]model.ChoreSwapRequest, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, nil
}

func (s *SwapStore) GetByID(id int64) (*model.ChoreSwapRequest, error) {
	row := s.db.QueryRow(`SELECT `+swapCols+` FROM chore_swap_requests WHERE id = ?`, id)
	r, err := scanSwap(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get swap request: %w", err)
	}
	return r, nil
}

func (s *SwapStore) ListByChore(choreID int64) ([]model.ChoreSwapRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+swapCols+` FROM chore_swap_requests WHERE chore_id = ? ORDER BY requested_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()
	return collectSwaps(rows)
}

// ListForRecipient returns pending requests addressed to a membership.
func (s *SwapStore) ListForRecipient(membershipID int64) ([]model.ChoreSwapRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+swapCols+` FROM chore_swap_requests WHERE to_membership = ? AND status = ? ORDER BY requested_at ASC`,
		membershipID, model.SwapPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list swap requests for recipient: %w", err)
	}
	defer rows.Close()
	return collectSwaps(rows)
}

// ListByMembership returns every request the membership sent or received.
func (s *SwapStore) ListByMembership(membershipID int64) ([]model.ChoreSwapRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+swapCols+` FROM chore_swap_requests WHERE from_membership = ? OR to_membership = ? ORDER BY requested_at DESC`,
		membershipID, membershipID,
	)
	if err != nil {
		return nil, fmt.Errorf("list swap requests for membership: %w", err)
	}
	defer rows.Close()
	return collectSwaps(rows)
}

// Accept resolves a pending request: the winning transition, the assignment
// transfer, and the cancellation of every other pending request on the chore
// commit as one transaction. The compare-and-set on status picks exactly one
// winner when responses race; losers get ErrSwapNotPending.
func (s *SwapStore) Accept(swapID int64, now time.Time) (*model.ChoreSwapRequest, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+swapCols+` FROM chore_swap_requests WHERE id = ?`, swapID)
	req, err := scanSwap(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get swap request: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE chore_swap_requests SET status = ?, responded_at = ? WHERE id = ? AND status = ?`,
		model.SwapAccepted, now.UTC(), swapID, model.SwapPending,
	)
	if err != nil {
		return nil, fmt.Errorf("accept swap request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrSwapNotPending
	}

	// Transfer the assignment slot, keeping its position. If the acceptor is
	// already assigned the requester's slot just goes away.
	var alreadyAssigned int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM chore_assignments WHERE chore_id = ? AND membership_id = ?`,
		req.ChoreID, req.ToMembership,
	).Scan(&alreadyAssigned)
	if err != nil {
		return nil, fmt.Errorf("check target assignment: %w", err)
	}
	if alreadyAssigned > 0 {
		_, err = tx.Exec(
			`DELETE FROM chore_assignments WHERE chore_id = ? AND membership_id = ?`,
			req.ChoreID, req.FromMembership,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE chore_assignments SET membership_id = ? WHERE chore_id = ? AND membership_id = ?`,
			req.ToMembership, req.ChoreID, req.FromMembership,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("transfer assignment: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE chore_swap_requests SET status = ?, responded_at = ? WHERE chore_id = ? AND status = ?`,
		model.SwapCancelled, now.UTC(), req.ChoreID, model.SwapPending,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel sibling requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(swapID)
}

// Decline marks a pending request declined. Other pending requests on the
// chore stay open.
func (s *SwapStore) Decline(swapID int64, now time.Time) (*model.ChoreSwapRequest, error) {
	return s.resolve(swapID, model.SwapDeclined, now)
}

// Cancel withdraws a pending request at the requester's initiative.
func (s *SwapStore) Cancel(swapID int64, now time.Time) (*model.ChoreSwapRequest, error) {
	return s.resolve(swapID, model.SwapCancelled, now)
}

func (s *SwapStore) resolve(swapID int64, status string, now time.Time) (*model.ChoreSwapRequest, error) {
	result, err := s.db.Exec(
		`UPDATE chore_swap_requests SET status = ?, responded_at = ? WHERE id = ? AND status = ?`,
		status, now.UTC(), swapID, model.SwapPending,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve swap request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := s.GetByID(swapID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrSwapNotPending
	}
	return s.GetByID(swapID)
}

func collectSwaps(rows *sql.Rows) ([]model.ChoreSwapRequest, error) {
	var requests []model.ChoreSwapRequest
	for rows.Next() {
		r, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}
