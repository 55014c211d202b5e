package handler

import (
	"database/sql"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/model"
	"github.com/Al0olo/Cloud-Government/internal/queue"
	"github.com/Al0olo/Cloud-Government/internal/repository"
	queue_publisher "github.com/Al0olo/Cloud-Government/internal/service"
)

// ApplicationHandler implements the application lifecycle: create,
// list, get, update and delete, each scoped to the authenticated
// owner. Compound writes (application + documents + history) run in a
// single transaction orchestrated here; notifications and broker
// events fire only after a successful commit.
type ApplicationHandler struct {
	Apps     *repository.ApplicationRepo
	Docs     *repository.DocumentRepo
	History  *repository.HistoryRepo
	Store    ObjectStore
	Notifier Notifier
}

// NewApplicationHandler constructs the handler and panics if any
// dependency is nil.
func NewApplicationHandler(apps *repository.ApplicationRepo, docs *repository.DocumentRepo, history *repository.HistoryRepo, store ObjectStore, notifier Notifier) *ApplicationHandler {
	if apps == nil || docs == nil || history == nil || store == nil || notifier == nil {
		panic("nil dependency passed to NewApplicationHandler")
	}
	return &ApplicationHandler{Apps: apps, Docs: docs, History: history, Store: store, Notifier: notifier}
}

// Create handles POST /v1/applications. The multipart form carries a
// `type`, a JSON `data` payload and up to five files under the
// `documents` field. The application row and every document row are
// inserted in one transaction; if any upload or insert fails, nothing
// is persisted. The stored object of a failed attempt is not cleaned
// up here; the row referencing it was rolled back, so it is merely
// orphaned in the bucket.
func (h *ApplicationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	appType := c.FormValue("type")
	if !model.ValidApplicationType(appType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application type"})
	}
	data := json.RawMessage(c.FormValue("data"))
	if len(data) == 0 || !json.Valid(data) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "data must be a JSON object"})
	}
	files, err := formFiles(c, "documents")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	tx, err := h.Apps.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	app, err := h.Apps.CreateTx(ctx, tx, userID, appType, data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create application"})
	}
	app.Documents = []model.Document{}
	for _, fh := range files {
		doc, err := h.uploadOneTx(c, tx, app.ID, fh, defaultDocType, nil)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store document"})
		}
		app.Documents = append(app.Documents, doc)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.Notifier.Dispatch(model.NotifyApplicationCreated, userID, app.ID, map[string]any{
		"applicationType": app.Type,
		"status":          app.Status,
	})
	return c.JSON(http.StatusCreated, app)
}

// List handles GET /v1/applications with optional status/type filters
// and page/limit pagination. Only the caller's own applications are
// visible; each row carries its documents.
func (h *ApplicationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, limit := paging(c)
	filter := repository.ListFilter{
		Status: c.QueryParam("status"),
		Type:   c.QueryParam("type"),
		Page:   page,
		Limit:  limit,
	}
	apps, total, err := h.Apps.List(c.Request().Context(), userID, filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch applications"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"applications": apps,
		"pagination":   paginate(page, limit, total),
	})
}

// Get handles GET /v1/applications/:id. The lookup is scoped to the
// owner, so an application belonging to someone else is a plain 404.
// The response includes documents and the full history newest-first.
func (h *ApplicationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	ctx := c.Request().Context()

	app, err := h.Apps.GetByIDForUser(ctx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "application not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch application"})
	}
	docs, err := h.Docs.ListByApplication(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch documents"})
	}
	history, err := h.History.ListByApplication(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch history"})
	}
	app.Documents = docs
	app.History = history
	return c.JSON(http.StatusOK, app)
}

// Update handles PUT /v1/applications/:id. Data and status follow
// coalesce semantics: each replaces the stored value only when
// supplied. Every update appends exactly one history entry recording
// the (previous, resolved-new) status pair, even when the status did
// not change. New files become pending documents in the same
// transaction. A status change additionally fans out a notification
// and a broker event after commit.
func (h *ApplicationHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}

	var data json.RawMessage
	if raw := c.FormValue("data"); raw != "" {
		data = json.RawMessage(raw)
		if !json.Valid(data) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "data must be a JSON object"})
		}
	}
	var status *string
	if raw := c.FormValue("status"); raw != "" {
		if !model.ValidApplicationStatus(raw) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		status = &raw
	}
	files, err := formFiles(c, "documents")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if data == nil && status == nil && len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx := c.Request().Context()
	tx, err := h.Apps.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	current, err := h.Apps.GetByIDForUserTx(ctx, tx, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "application not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch application"})
	}
	updated, err := h.Apps.UpdateTx(ctx, tx, id, userID, data, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update application"})
	}
	newStatus := current.Status
	if status != nil {
		newStatus = *status
	}
	if err := h.History.CreateTx(ctx, tx, id, userID, "update", current.Status, newStatus, "Application updated"); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record history"})
	}
	updated.Documents = []model.Document{}
	for _, fh := range files {
		doc, err := h.uploadOneTx(c, tx, id, fh, defaultDocType, nil)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store document"})
		}
		updated.Documents = append(updated.Documents, doc)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if status != nil && *status != current.Status {
		h.Notifier.Dispatch(model.NotifyApplicationStatusChanged, userID, id, map[string]any{
			"previousStatus": current.Status,
			"newStatus":      *status,
		})
		// Integration event for downstream consumers; failures are
		// logged inside the publisher and ignored here.
		go func(ev queue.ApplicationStatusChangedEvent) {
			pubCtx, cancel := contextWithTimeout(15 * time.Second)
			defer cancel()
			_ = queue_publisher.PublishStatusChanged(pubCtx, ev)
		}(queue.ApplicationStatusChangedEvent{
			ApplicationID:   id,
			UserID:          userID,
			ApplicationType: updated.Type,
			PreviousStatus:  current.Status,
			NewStatus:       *status,
			ChangedAt:       time.Now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/applications/:id. Documents, history and
// the application row are removed in one transaction; the stored
// objects are deleted from the bucket best-effort after commit so a
// storage outage cannot block the delete or leave half a database
// state behind.
func (h *ApplicationHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid application id"})
	}
	ctx := c.Request().Context()
	tx, err := h.Apps.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Apps.GetByIDForUserTx(ctx, tx, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "application not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch application"})
	}
	paths, err := h.Docs.PathsByApplicationTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to collect documents"})
	}
	if err := h.Docs.DeleteByApplicationTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete documents"})
	}
	if err := h.History.DeleteByApplicationTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete history"})
	}
	if err := h.Apps.DeleteTx(ctx, tx, id, userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete application"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Underlying objects go too, best-effort. The rows referencing
	// them are gone either way.
	go func(locations []string) {
		ctx, cancel := contextWithTimeout(30 * time.Second)
		defer cancel()
		for _, loc := range locations {
			key, err := h.Store.KeyFromLocation(loc)
			if err != nil {
				log.Printf("application delete: bad storage location %q: %v", loc, err)
				continue
			}
			if err := h.Store.Delete(ctx, key); err != nil {
				log.Printf("application delete: remove object %s failed: %v", key, err)
			}
		}
	}(paths)

	return c.NoContent(http.StatusNoContent)
}

// uploadOneTx pushes one file to the object store and inserts its
// pending document row inside the caller's transaction.
func (h *ApplicationHandler) uploadOneTx(c echo.Context, tx *sql.Tx, applicationID uint64, fh *multipart.FileHeader, docType string, extra json.RawMessage) (model.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Document{}, err
	}
	defer f.Close()
	ct := fh.Header.Get("Content-Type")
	ctx := c.Request().Context()
	up, err := h.Store.Upload(ctx, f, fh.Size, ct, fh.Filename)
	if err != nil {
		return model.Document{}, err
	}
	metadata, err := repository.BuildMetadata(fh.Filename, ct, fh.Size, extra)
	if err != nil {
		return model.Document{}, err
	}
	return h.Docs.CreateTx(ctx, tx, applicationID, docType, up.Location, metadata)
}

// formFiles collects and validates the uploads under one multipart
// field. A request without files is fine; too many or invalid files
// are rejected before anything is stored.
func formFiles(c echo.Context, field string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// No multipart body at all means no files.
		return nil, nil
	}
	files := form.File[field]
	if len(files) > maxFilesPerRequest {
		return nil, errTooManyFiles
	}
	for _, fh := range files {
		if err := checkUpload(fh); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}
