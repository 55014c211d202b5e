package model

import (
	"encoding/json"
	"time"
)

// Notification types emitted by the portal. Every type has an email
// template; dispatching an unknown type is an error, never silent
// blank mail.
const (
	NotifyApplicationCreated       = "application_created"
	NotifyApplicationUpdated       = "application_updated"
	NotifyApplicationStatusChanged = "application_status_changed"
	NotifyDocumentUploaded         = "document_uploaded"
	NotifyReviewCompleted          = "review_completed"
)

// Notification mirrors the `notifications` table. Rows are written
// unconditionally when an event fires; the email is sent only when the
// recipient's per-type preference is not explicitly disabled. ReadAt is
// null until the recipient opens the notification.
type Notification struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	Type          string          `json:"type"`
	ApplicationID uint64          `json:"application_id"`
	Data          json.RawMessage `json:"data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ReadAt        *time.Time      `json:"read_at,omitempty"`
}
