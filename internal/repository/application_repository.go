package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

// ApplicationRepo provides CRUD operations for permit applications.
// Writes that span multiple tables (application + documents + history)
// take a *sql.Tx opened by the caller, who must commit or roll back.
type ApplicationRepo struct {
	db *sql.DB
}

// NewApplicationRepo returns a new ApplicationRepo bound to the given database.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions.
func (r *ApplicationRepo) DB() *sql.DB { return r.db }

const applicationColumns = "id,user_id,type,status,data,created_at,updated_at"

// CreateTx inserts a new application with status draft within the scope
// of an existing transaction and returns the stored row.
func (r *ApplicationRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, appType string, data json.RawMessage) (model.Application, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO applications (user_id, type, status, data) VALUES (?,?,?,?)",
		userID, appType, model.StatusDraft, []byte(data))
	if err != nil {
		return model.Application{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Application{}, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=?", id)
	return scanApplication(row)
}

// GetByIDForUserTx loads an application scoped to its owner inside a
// transaction. A row owned by someone else is indistinguishable from a
// missing one: both return sql.ErrNoRows.
func (r *ApplicationRepo) GetByIDForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.Application, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=? AND user_id=?", id, userID)
	return scanApplication(row)
}

// OwnerTx returns the owning user of an application, or sql.ErrNoRows
// when the application does not exist. The document upload path uses
// it to distinguish a missing parent (404) from someone else's (403).
func (r *ApplicationRepo) OwnerTx(ctx context.Context, tx *sql.Tx, id uint64) (uint64, error) {
	var owner uint64
	err := tx.QueryRowContext(ctx,
		"SELECT user_id FROM applications WHERE id=?", id).Scan(&owner)
	return owner, err
}

// GetByIDForUser is the non-transactional variant of GetByIDForUserTx.
func (r *ApplicationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.Application, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=? AND user_id=?", id, userID)
	return scanApplication(row)
}

// UpdateTx applies a coalesce update: data and status replace the
// stored values only when non-nil, otherwise the stored values are
// retained. The updated row is returned.
func (r *ApplicationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id, userID uint64, data json.RawMessage, status *string) (model.Application, error) {
	_, err := tx.ExecContext(ctx,
		`UPDATE applications
		 SET data = COALESCE(?, data),
		     status = COALESCE(?, status),
		     updated_at = NOW()
		 WHERE id = ? AND user_id = ?`,
		nullableJSON(data), nullableStr(status), id, userID)
	if err != nil {
		return model.Application{}, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE id=? AND user_id=?", id, userID)
	return scanApplication(row)
}

// DeleteTx removes the application row itself. Documents and history
// must already have been removed by the caller within the same
// transaction.
func (r *ApplicationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM applications WHERE id=? AND user_id=?", id, userID)
	return err
}

// ListFilter narrows List and ListAll results. Empty fields are
// ignored; Page and Limit are assumed to be normalized by the handler.
type ListFilter struct {
	Status string
	Type   string
	Page   int
	Limit  int
}

// List returns one page of the user's applications ordered newest-first
// plus the total count matching the filter. Each application carries
// its documents.
func (r *ApplicationRepo) List(ctx context.Context, userID uint64, f ListFilter) ([]model.Application, int, error) {
	where := "WHERE user_id = ?"
	args := []any{userID}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Type != "" {
		where += " AND type = ?"
		args = append(args, f.Type)
	}
	return r.listPage(ctx, where, args, f)
}

// ListAll is the staff/admin variant of List: it spans all users.
func (r *ApplicationRepo) ListAll(ctx context.Context, f ListFilter) ([]model.Application, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Type != "" {
		where += " AND type = ?"
		args = append(args, f.Type)
	}
	return r.listPage(ctx, where, args, f)
}

func (r *ApplicationRepo) listPage(ctx context.Context, where string, args []any, f ListFilter) ([]model.Application, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + applicationColumns + " FROM applications " + where +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		a.Documents = []model.Document{}
		index[a.ID] = len(apps)
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(apps) == 0 {
		return apps, total, nil
	}

	// Attach documents for the whole page in one query.
	ids := make([]any, 0, len(apps))
	placeholders := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
		placeholders = append(placeholders, "?")
	}
	docQuery := "SELECT " + documentColumns + " FROM documents WHERE application_id IN (" +
		strings.Join(placeholders, ",") + ") ORDER BY application_id, created_at"
	drows, err := r.db.QueryContext(ctx, docQuery, ids...)
	if err != nil {
		return nil, 0, err
	}
	defer drows.Close()
	for drows.Next() {
		d, err := scanDocument(drows)
		if err != nil {
			return nil, 0, err
		}
		if i, ok := index[d.ApplicationID]; ok {
			apps[i].Documents = append(apps[i].Documents, d)
		}
	}
	if err := drows.Err(); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// CountByStatus returns the number of applications per status.
func (r *ApplicationRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "status")
}

// CountByType returns the number of applications per type.
func (r *ApplicationRepo) CountByType(ctx context.Context) (map[string]int, error) {
	return r.countBy(ctx, "type")
}

func (r *ApplicationRepo) countBy(ctx context.Context, column string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM applications GROUP BY "+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func scanApplication(row rowScanner) (model.Application, error) {
	var a model.Application
	var data []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Status, &data, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Application{}, err
	}
	if len(data) > 0 {
		a.Data = json.RawMessage(data)
	}
	return a, nil
}
