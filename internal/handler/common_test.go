package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Al0olo/Cloud-Government/internal/storage"
)

// fakeStore is an in-memory ObjectStore double that records uploads
// and deletes.
type fakeStore struct {
	mu       sync.Mutex
	uploads  int
	deleted  []string
	uploadFn func() error
}

func (f *fakeStore) Upload(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadFn != nil {
		if err := f.uploadFn(); err != nil {
			return storage.UploadResult{}, err
		}
	}
	f.uploads++
	key := fmt.Sprintf("documents/%d.pdf", f.uploads)
	return storage.UploadResult{
		Location: "http://minio:9000/permit-docs/" + key,
		Key:      key,
	}, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://minio:9000/signed/" + key, nil
}

func (f *fakeStore) KeyFromLocation(location string) (string, error) {
	return strings.TrimPrefix(location, "http://minio:9000/permit-docs/"), nil
}

func (f *fakeStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// fakeNotifier records dispatched notifications synchronously.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []dispatched
}

type dispatched struct {
	Type          string
	UserID        uint64
	ApplicationID uint64
	Data          map[string]any
}

func (f *fakeNotifier) Dispatch(notifType string, userID, applicationID uint64, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatched{notifType, userID, applicationID, data})
}

func (f *fakeNotifier) all() []dispatched {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatched(nil), f.calls...)
}

// multipartBody builds a multipart form with plain fields plus PDF
// files under the given field name.
func multipartBody(t *testing.T, fields map[string]string, fileField string, fileNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range fileNames {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, name))
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// newTestContext builds an echo context for an authenticated citizen.
func newTestContext(method, target string, body io.Reader, contentType string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func TestPaginate(t *testing.T) {
	p := paginate(2, 10, 35)
	require.Equal(t, 2, p.CurrentPage)
	require.Equal(t, 4, p.TotalPages)
	require.Equal(t, 35, p.TotalCount)
	require.True(t, p.HasMore)

	p = paginate(4, 10, 35)
	require.False(t, p.HasMore)
}

func TestCheckUpload(t *testing.T) {
	fh := &multipart.FileHeader{
		Filename: "plan.pdf",
		Size:     1024,
		Header:   textproto.MIMEHeader{"Content-Type": []string{"application/pdf"}},
	}
	require.NoError(t, checkUpload(fh))

	fh.Header.Set("Content-Type", "application/zip")
	require.Error(t, checkUpload(fh))

	fh.Header.Set("Content-Type", "image/png")
	fh.Size = maxFileSize + 1
	require.Error(t, checkUpload(fh))
}
