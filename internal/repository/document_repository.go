package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Al0olo/Cloud-Government/internal/model"
)

const documentColumns = "id,application_id,type,path,status,verified_at,verified_by,metadata,created_at,updated_at"

// DocumentRepo provides persistence for the `documents` table. A
// document row never exists without its parent application; inserts
// always run inside the transaction that validated the parent.
type DocumentRepo struct{ db *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions.
func (r *DocumentRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new pending document within an existing
// transaction and returns the stored row.
func (r *DocumentRepo) CreateTx(ctx context.Context, tx *sql.Tx, applicationID uint64, docType, path string, metadata json.RawMessage) (model.Document, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (application_id, type, path, status, metadata) VALUES (?,?,?,?,?)",
		applicationID, docType, path, model.DocPending, nullableJSON(metadata))
	if err != nil {
		return model.Document{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Document{}, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=?", id)
	return scanDocument(row)
}

// ListByApplication returns every document of one application ordered
// by creation time.
func (r *DocumentRepo) ListByApplication(ctx context.Context, applicationID uint64) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE application_id=? ORDER BY created_at, id",
		applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetForUser returns a document only when its parent application is
// owned by userID; otherwise sql.ErrNoRows.
func (r *DocumentRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT d.id,d.application_id,d.type,d.path,d.status,d.verified_at,d.verified_by,d.metadata,d.created_at,d.updated_at
		 FROM documents d
		 JOIN applications a ON a.id = d.application_id
		 WHERE d.id = ? AND a.user_id = ?`, id, userID)
	return scanDocument(row)
}

// GetForUserTx is the transactional variant of GetForUser.
func (r *DocumentRepo) GetForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (model.Document, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT d.id,d.application_id,d.type,d.path,d.status,d.verified_at,d.verified_by,d.metadata,d.created_at,d.updated_at
		 FROM documents d
		 JOIN applications a ON a.id = d.application_id
		 WHERE d.id = ? AND a.user_id = ?`, id, userID)
	return scanDocument(row)
}

// GetByIDTx loads a document without tenancy scoping. Used by the
// verification path, which is gated by role upstream rather than by
// ownership.
func (r *DocumentRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Document, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=?", id)
	return scanDocument(row)
}

// VerifyTx records a staff verification decision: status, timestamp and
// verifier, with notes merged into the metadata object under the
// verificationNotes key. The caller must have loaded the document in
// the same transaction; storedMetadata is its current metadata.
func (r *DocumentRepo) VerifyTx(ctx context.Context, tx *sql.Tx, id uint64, status string, verifierID uint64, notes string, storedMetadata json.RawMessage) (model.Document, error) {
	metadata := storedMetadata
	if notes != "" {
		patch, err := json.Marshal(map[string]any{"verificationNotes": notes})
		if err != nil {
			return model.Document{}, err
		}
		merged, err := mergeJSONObjects(storedMetadata, patch)
		if err != nil {
			return model.Document{}, err
		}
		metadata = merged
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE documents
		 SET status = ?, verified_at = NOW(), verified_by = ?, metadata = ?, updated_at = NOW()
		 WHERE id = ?`,
		status, verifierID, nullableJSON(metadata), id)
	if err != nil {
		return model.Document{}, err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id=?", id)
	return scanDocument(row)
}

// DeleteTx removes a single document row.
func (r *DocumentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id=?", id)
	return err
}

// PathsByApplicationTx returns the storage locations of every document
// attached to an application. The delete path uses this to remove the
// stored objects after the transaction commits.
func (r *DocumentRepo) PathsByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT path FROM documents WHERE application_id=?", applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteByApplicationTx removes every document row of an application.
func (r *DocumentRepo) DeleteByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE application_id=?", applicationID)
	return err
}

func scanDocument(row rowScanner) (model.Document, error) {
	var d model.Document
	var metadata []byte
	var verifiedAt sql.NullTime
	var verifiedBy sql.NullInt64
	err := row.Scan(&d.ID, &d.ApplicationID, &d.Type, &d.Path, &d.Status,
		&verifiedAt, &verifiedBy, &metadata, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Document{}, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	if verifiedBy.Valid {
		id := uint64(verifiedBy.Int64)
		d.VerifiedBy = &id
	}
	if len(metadata) > 0 {
		d.Metadata = json.RawMessage(metadata)
	}
	return d, nil
}

// DocumentMetadata is the metadata object stored alongside every
// uploaded file. Extra uploader-supplied keys are merged on top.
type DocumentMetadata struct {
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// BuildMetadata merges storage-derived fields with any extra metadata
// supplied by the uploader. Extra keys never override the derived ones.
func BuildMetadata(originalName, mimeType string, size int64, extra json.RawMessage) (json.RawMessage, error) {
	derived, err := json.Marshal(DocumentMetadata{
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         size,
	})
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return derived, nil
	}
	return mergeJSONObjects(extra, derived)
}
