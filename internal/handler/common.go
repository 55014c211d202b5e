package handler // handler defines http handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/storage"
)

// ObjectStore is the slice of the storage gateway the handlers need.
// The concrete implementation is storage.Client; tests substitute an
// in-memory double.
type ObjectStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	KeyFromLocation(location string) (string, error)
}

// Notifier dispatches a notification after the triggering transaction
// has committed. Implementations must never block the caller on
// delivery and must swallow (but log) failures.
type Notifier interface {
	Dispatch(notifType string, userID, applicationID uint64, data map[string]any)
}

// Upload constraints, enforced before the storage gateway is invoked.
const (
	maxFileSize        = 10 << 20 // 10 MB
	maxFilesPerRequest = 5
)

// defaultDocType is assigned when the uploader does not name a
// document type.
const defaultDocType = "supporting_document"

var (
	errTooManyFiles = fmt.Errorf("at most %d files per request", maxFilesPerRequest)
	errInvalidID    = errors.New("invalid id")
)

var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// checkUpload validates one incoming file against the MIME and size
// limits.
func checkUpload(fh *multipart.FileHeader) error {
	ct := fh.Header.Get("Content-Type")
	if !allowedMIMETypes[ct] {
		return fmt.Errorf("file type %s is not supported", ct)
	}
	if fh.Size > maxFileSize {
		return fmt.Errorf("file %s exceeds the %d MB limit", fh.Filename, maxFileSize>>20)
	}
	return nil
}

// contextWithTimeout gives post-commit background work a bounded
// context detached from the request.
func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim stored by the JWT middleware.
func getRole(c echo.Context) string {
	if role, ok := c.Get("role").(string); ok {
		return role
	}
	return ""
}

// paging reads and normalizes the page/limit query parameters:
// page >= 1, 1 <= limit <= 100, defaults page=1 limit=10.
func paging(c echo.Context) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v >= 1 {
		limit = v
		if limit > 100 {
			limit = 100
		}
	}
	return page, limit
}

// pagination is the envelope attached to every listing response.
type pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	HasMore     bool `json:"has_more"`
}

func paginate(page, limit, total int) pagination {
	totalPages := (total + limit - 1) / limit
	return pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasMore:     page < totalPages,
	}
}
