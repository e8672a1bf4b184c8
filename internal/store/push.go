package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dormduty/dormduty/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

const pushSubCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

// Create registers a subscription. Re-registering an endpoint rebinds it to
// the current user and refreshes the keys.
func (s *PushStore) Create(userID int64, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	result, err := s.db.Exec(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		userID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}
	if _, err := result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pushSubCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	sub, err := scanPushSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushSubCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// WasSent reports whether a notification of this type for this reference was
// already delivered on the given day. Keeps the reminder scheduler from
// re-sending on every tick.
func (s *PushStore) WasSent(notificationType, refID string, day time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM push_sent_log WHERE notification_type = ? AND ref_id = ? AND sent_on = ?`,
		notificationType, refID, day.UTC().Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent log: %w", err)
	}
	return count > 0, nil
}

func (s *PushStore) MarkSent(notificationType, refID string, day time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO push_sent_log (notification_type, ref_id, sent_on) VALUES (?, ?, ?)
		 ON CONFLICT(notification_type, ref_id, sent_on) DO NOTHING`,
		notificationType, refID, day.UTC().Format("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}
