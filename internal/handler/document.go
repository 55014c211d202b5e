package handler

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/model"
	"github.com/Al0olo/Cloud-Government/internal/repository"
)

// signedURLTTL bounds how long a download link stays valid.
const signedURLTTL = time.Hour

// DocumentHandler covers standalone document operations: upload onto
// an existing application, fetch, signed download URLs, staff
// verification and delete.
type DocumentHandler struct {
	Apps     *repository.ApplicationRepo
	Docs     *repository.DocumentRepo
	Store    ObjectStore
	Notifier Notifier
}

func NewDocumentHandler(apps *repository.ApplicationRepo, docs *repository.DocumentRepo, store ObjectStore, notifier Notifier) *DocumentHandler {
	if apps == nil || docs == nil || store == nil || notifier == nil {
		panic("nil dependency passed to NewDocumentHandler")
	}
	return &DocumentHandler{Apps: apps, Docs: docs, Store: store, Notifier: notifier}
}

// Upload handles POST /v1/applications/:id/documents. The multipart
// form carries one `document` file, a `type` and an optional JSON
// `metadata` field. Uploading onto a nonexistent application is a 404;
// onto someone else's application a 403, since the caller already
// knows it exists.
func (h *DocumentHandler) Upload(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	applicationID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	fh, err := c.FormFile("document")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "document file is required"})
	}
	if err := checkUpload(fh); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	docType := c.FormValue("type")
	if docType == "" {
		docType = defaultDocType
	}
	var extra json.RawMessage
	if raw := c.FormValue("metadata"); raw != "" {
		extra = json.RawMessage(raw)
		if !json.Valid(extra) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "metadata must be a JSON object"})
		}
	}

	ctx := c.Request().Context()
	tx, err := h.Docs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	owner, err := h.Apps.OwnerTx(ctx, tx, applicationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "application not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch application"})
	}
	if owner != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read upload"})
	}
	defer f.Close()
	ct := fh.Header.Get("Content-Type")
	up, err := h.Store.Upload(ctx, f, fh.Size, ct, fh.Filename)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store document"})
	}
	metadata, err := repository.BuildMetadata(fh.Filename, ct, fh.Size, extra)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "metadata must be a JSON object"})
	}
	doc, err := h.Docs.CreateTx(ctx, tx, applicationID, docType, up.Location, metadata)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create document"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.Notifier.Dispatch(model.NotifyDocumentUploaded, userID, applicationID, map[string]any{
		"documentType": doc.Type,
		"fileName":     fh.Filename,
	})
	return c.JSON(http.StatusCreated, doc)
}

// Get handles GET /v1/documents/:id, scoped through the owning
// application so other tenants see a 404.
func (h *DocumentHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}
	doc, err := h.Docs.GetForUser(c.Request().Context(), id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch document"})
	}
	return c.JSON(http.StatusOK, doc)
}

// SignedURL handles GET /v1/documents/:id/url. The stored location is
// never handed out directly; instead a presigned link valid for one
// hour is minted per request.
func (h *DocumentHandler) SignedURL(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}
	ctx := c.Request().Context()
	doc, err := h.Docs.GetForUser(ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch document"})
	}
	key, err := h.Store.KeyFromLocation(doc.Path)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalid document location"})
	}
	url, err := h.Store.SignedURL(ctx, key, signedURLTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign url"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"url":        url,
		"expires_in": int(signedURLTTL.Seconds()),
	})
}

type verifyReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Verify handles PATCH /v1/documents/:id/verify. Restricted to staff
// and admin by routing middleware; the reviewer marks the document
// verified or rejected and the applicant is notified of the outcome.
func (h *DocumentHandler) Verify(c echo.Context) error {
	reviewerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Status != model.DocVerified && req.Status != model.DocRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be verified or rejected"})
	}

	ctx := c.Request().Context()
	tx, err := h.Docs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := h.Docs.GetByIDTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch document"})
	}
	doc, err := h.Docs.VerifyTx(ctx, tx, id, req.Status, reviewerID, req.Notes, current.Metadata)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update document"})
	}
	owner, err := h.Apps.OwnerTx(ctx, tx, current.ApplicationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch application"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.Notifier.Dispatch(model.NotifyReviewCompleted, owner, current.ApplicationID, map[string]any{
		"documentType": doc.Type,
		"status":       req.Status,
		"notes":        req.Notes,
	})
	return c.JSON(http.StatusOK, doc)
}

// Delete handles DELETE /v1/documents/:id. The row goes first; the
// stored object is removed best-effort after commit.
func (h *DocumentHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}
	ctx := c.Request().Context()
	tx, err := h.Docs.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	doc, err := h.Docs.GetForUserTx(ctx, tx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch document"})
	}
	if err := h.Docs.DeleteTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete document"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	go func(location string) {
		ctx, cancel := contextWithTimeout(30 * time.Second)
		defer cancel()
		key, err := h.Store.KeyFromLocation(location)
		if err != nil {
			log.Printf("document delete: bad storage location %q: %v", location, err)
			return
		}
		if err := h.Store.Delete(ctx, key); err != nil {
			log.Printf("document delete: remove object %s failed: %v", key, err)
		}
	}(doc.Path)

	return c.NoContent(http.StatusNoContent)
}
