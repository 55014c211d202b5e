package repository

import (
	"context"
	"database/sql"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

// HistoryRepo provides append-only persistence for the
// `application_history` audit table. Entries are only ever inserted,
// or removed wholesale when their application is deleted.
type HistoryRepo struct{ db *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// CreateTx appends one audit entry within an existing transaction.
func (r *HistoryRepo) CreateTx(ctx context.Context, tx *sql.Tx, applicationID, userID uint64, action, previousStatus, newStatus, notes string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO application_history
		 (application_id, user_id, action, previous_status, new_status, notes)
		 VALUES (?,?,?,?,?,?)`,
		applicationID, userID, action, previousStatus, newStatus, notes)
	return err
}

// ListByApplication returns all audit entries for an application
// ordered newest-first.
func (r *HistoryRepo) ListByApplication(ctx context.Context, applicationID uint64) ([]model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, application_id, user_id, action, previous_status, new_status, notes, created_at
		 FROM application_history
		 WHERE application_id = ?
		 ORDER BY created_at DESC, id DESC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.HistoryEntry, 0)
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.UserID, &e.Action,
			&e.PreviousStatus, &e.NewStatus, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteByApplicationTx removes every audit entry of an application.
func (r *HistoryRepo) DeleteByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM application_history WHERE application_id=?", applicationID)
	return err
}
