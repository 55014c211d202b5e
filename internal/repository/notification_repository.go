package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

const notificationColumns = "id,user_id,type,application_id,data,created_at,read_at"

// NotificationRepo provides persistence for the `notifications` table.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row and returns it. This runs outside
// any business transaction: notifications are recorded after the
// triggering write has committed.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, notifType string, applicationID uint64, data json.RawMessage) (model.Notification, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, application_id, data) VALUES (?,?,?,?)",
		userID, notifType, applicationID, nullableJSON(data))
	if err != nil {
		return model.Notification{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Notification{}, err
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id=?", id)
	return scanNotification(row)
}

// ListByUser returns the user's notifications newest-first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]model.Notification, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkRead stamps read_at on a notification owned by userID. Returns
// sql.ErrNoRows when the notification does not exist or belongs to
// someone else.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at=NOW() WHERE id=? AND user_id=?",
		id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanNotification(row rowScanner) (model.Notification, error) {
	var n model.Notification
	var data []byte
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.ApplicationID, &data, &n.CreatedAt, &readAt)
	if err != nil {
		return model.Notification{}, err
	}
	if len(data) > 0 {
		n.Data = json.RawMessage(data)
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}
