package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Al0olo/Cloud-Government/internal/model"
	"github.com/Al0olo/Cloud-Government/internal/repository"
)

func newDocumentHandler(t *testing.T) (*DocumentHandler, sqlmock.Sqlmock, *fakeStore, *fakeNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	h := NewDocumentHandler(
		repository.NewApplicationRepo(db),
		repository.NewDocumentRepo(db),
		store,
		notifier,
	)
	return h, mock, store, notifier
}

func TestDocumentUploadMissingApplication(t *testing.T) {
	h, mock, _, _ := newDocumentHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM applications WHERE id=").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	body, ct := multipartBody(t, map[string]string{"type": "site_plan"}, "document", "plan.pdf")
	c, rec := newTestContext(http.MethodPost, "/v1/applications/11/documents", body, ct, 42)
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.Upload(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentUploadForeignApplication(t *testing.T) {
	h, mock, store, notifier := newDocumentHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM applications WHERE id=").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectRollback()

	body, ct := multipartBody(t, map[string]string{"type": "site_plan"}, "document", "plan.pdf")
	c, rec := newTestContext(http.MethodPost, "/v1/applications/11/documents", body, ct, 42)
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.Upload(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 0, store.uploads)
	require.Empty(t, notifier.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentUpload(t *testing.T) {
	h, mock, store, notifier := newDocumentHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM applications WHERE id=").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(42))
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id=").
		WillReturnRows(documentRows(5, 11, "site_plan", "http://minio:9000/permit-docs/documents/1.pdf"))
	mock.ExpectCommit()

	body, ct := multipartBody(t, map[string]string{
		"type":     "site_plan",
		"metadata": `{"note":"rev 2"}`,
	}, "document", "plan.pdf")
	c, rec := newTestContext(http.MethodPost, "/v1/applications/11/documents", body, ct, 42)
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.Upload(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, store.uploads)

	calls := notifier.all()
	require.Len(t, calls, 1)
	require.Equal(t, model.NotifyDocumentUploaded, calls[0].Type)
	require.EqualValues(t, 42, calls[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentSignedURL(t *testing.T) {
	h, mock, _, _ := newDocumentHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM documents d").
		WithArgs(uint64(5), uint64(42)).
		WillReturnRows(documentRows(5, 11, "site_plan", "http://minio:9000/permit-docs/documents/1.pdf"))

	c, rec := newTestContext(http.MethodGet, "/v1/documents/5/url", nil, "", 42)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.SignedURL(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "https://minio:9000/signed/documents/1.pdf", got.URL)
	require.Equal(t, 3600, got.ExpiresIn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentVerifyInvalidStatus(t *testing.T) {
	h, mock, _, _ := newDocumentHandler(t)

	c, rec := newTestContext(http.MethodPatch, "/v1/documents/5/verify",
		strings.NewReader(`{"status":"maybe"}`), echo.MIMEApplicationJSON, 9)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentVerifyNotifiesApplicant(t *testing.T) {
	h, mock, _, notifier := newDocumentHandler(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(documentRows(5, 11, "site_plan", "documents/1.pdf"))
	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_id", "type", "path", "status",
			"verified_at", "verified_by", "metadata", "created_at", "updated_at",
		}).AddRow(5, 11, "site_plan", "documents/1.pdf", model.DocVerified, now, 9, []byte(`{"verificationNotes":"looks good"}`), now, now))
	mock.ExpectQuery("SELECT user_id FROM applications WHERE id=").
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(42))
	mock.ExpectCommit()

	c, rec := newTestContext(http.MethodPatch, "/v1/documents/5/verify",
		strings.NewReader(`{"status":"verified","notes":"looks good"}`), echo.MIMEApplicationJSON, 9)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Verify(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, model.DocVerified, doc.Status)
	require.NotNil(t, doc.VerifiedBy)

	calls := notifier.all()
	require.Len(t, calls, 1)
	require.Equal(t, model.NotifyReviewCompleted, calls[0].Type)
	require.EqualValues(t, 42, calls[0].UserID)
	require.Equal(t, model.DocVerified, calls[0].Data["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentDeleteCleansUpObject(t *testing.T) {
	h, mock, store, _ := newDocumentHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM documents d").
		WithArgs(uint64(5), uint64(42)).
		WillReturnRows(documentRows(5, 11, "site_plan", "http://minio:9000/permit-docs/documents/1.pdf"))
	mock.ExpectExec("DELETE FROM documents WHERE id=").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newTestContext(http.MethodDelete, "/v1/documents/5", nil, "", 42)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Eventually(t, func() bool {
		return len(store.deletedKeys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"documents/1.pdf"}, store.deletedKeys())
}
