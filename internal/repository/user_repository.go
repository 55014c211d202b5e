package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/Al0olo/Cloud-Government/internal/model"
	"github.com/Al0olo/Cloud-Government/internal/utils"
)

const userColumns = "id,email,password_hash,first_name,last_name,phone,role,status,notification_preferences,created_at,updated_at,last_login_at"

// UserRepo provides persistence for the `users` table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions.
func (r *UserRepo) DB() *sql.DB { return r.db }

// Create inserts a new citizen account and returns the stored row.
// The password is hashed here so a plain password never reaches SQL.
// Duplicate emails map to ErrEmailExists (MySQL error 1062) and leave
// the existing row unchanged.
func (r *UserRepo) Create(ctx context.Context, email, password, firstName, lastName, phone string, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, phone, role, status) VALUES (?,?,?,?,?,?,?)",
		email, hash, firstName, lastName, phone, model.RoleCitizen, model.UserActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email. Soft-deleted rows are
// excluded so deleted accounts cannot log in.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND status<>? LIMIT 1",
		email, model.UserDeleted)
	return scanUser(row)
}

// GetByID fetches a user by id regardless of status.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetProfile fetches a user by id, treating soft-deleted accounts as
// missing.
func (r *UserRepo) GetProfile(ctx context.Context, id uint64) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND status<>? LIMIT 1",
		id, model.UserDeleted)
	return scanUser(row)
}

// ProfileUpdate carries the optional fields of a profile update. Nil
// means "keep the stored value". Preferences are shallow-merged into
// the stored object rather than replacing it.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	Preferences json.RawMessage
}

// UpdateProfile applies a coalesce update to the name/phone fields and
// merges notification preferences. The read-merge-write runs in its own
// transaction so concurrent updates cannot interleave the merge.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, in ProfileUpdate) (model.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var stored []byte
	err = tx.QueryRowContext(ctx,
		"SELECT notification_preferences FROM users WHERE id=? AND status<>? LIMIT 1",
		id, model.UserDeleted).Scan(&stored)
	if err != nil {
		return model.User{}, err
	}

	prefs := stored
	if len(in.Preferences) > 0 {
		merged, err := mergeJSONObjects(stored, in.Preferences)
		if err != nil {
			return model.User{}, err
		}
		prefs = merged
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users
		 SET first_name = COALESCE(?, first_name),
		     last_name  = COALESCE(?, last_name),
		     phone      = COALESCE(?, phone),
		     notification_preferences = ?,
		     updated_at = NOW()
		 WHERE id = ?`,
		nullableStr(in.FirstName), nullableStr(in.LastName), nullableStr(in.Phone),
		nullableJSON(prefs), id)
	if err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	committed = true
	return r.GetProfile(ctx, id)
}

// ChangePassword verifies the current password against the stored hash
// and replaces it with a hash of the new one. Returns sql.ErrNoRows for
// a missing user and ErrBadPassword for a mismatch, leaving the stored
// hash untouched in both cases.
func (r *UserRepo) ChangePassword(ctx context.Context, id uint64, current, next string, cost int) error {
	var hash string
	err := r.db.QueryRowContext(ctx,
		"SELECT password_hash FROM users WHERE id=? LIMIT 1", id).Scan(&hash)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(hash, current) {
		return ErrBadPassword
	}
	newHash, err := utils.HashPassword(next, cost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", newHash, id)
	return err
}

// TouchLastLogin records a successful login. Best-effort: the caller
// may ignore the error.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET last_login_at=NOW() WHERE id=?", id)
	return err
}

// List returns a page of users ordered newest-first along with the
// total count. Used by the admin listing.
func (r *UserRepo) List(ctx context.Context, page, limit int) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Count returns the total number of user rows.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var prefs []byte
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.Role, &u.Status, &prefs, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return model.User{}, err
	}
	if len(prefs) > 0 {
		u.NotificationPreferences = json.RawMessage(prefs)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// mergeJSONObjects shallow-merges patch into base. A nil or empty base
// is treated as an empty object.
func mergeJSONObjects(base, patch []byte) ([]byte, error) {
	merged := map[string]any{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, err
		}
	}
	patchMap := map[string]any{}
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return nil, err
	}
	for k, v := range patchMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
