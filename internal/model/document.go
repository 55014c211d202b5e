package model

import (
	"encoding/json"
	"time"
)

// Document verification statuses.
const (
	DocPending  = "pending"
	DocVerified = "verified"
	DocRejected = "rejected"
)

// Document mirrors the `documents` table. A document always belongs to
// exactly one application and is cascade-deleted with it. Path is the
// object store location returned by the storage gateway; Metadata holds
// the original filename, MIME type, size and any staff notes.
//
// Fields:
//  ID            – primary key identifier.
//  ApplicationID – owning application.
//  Type          – document kind supplied by the uploader
//                  (construction_plan, site_plan, property_deed,
//                  identification, other).
//  Path          – object store location URL.
//  Status        – pending, verified or rejected.
//  VerifiedAt    – when a staff member verified the document (nullable).
//  VerifiedBy    – staff user who verified it (nullable).
//  Metadata      – raw JSON metadata object.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Document struct {
	ID            uint64          `json:"id"`
	ApplicationID uint64          `json:"application_id"`
	Type          string          `json:"type"`
	Path          string          `json:"path"`
	Status        string          `json:"status"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy    *uint64         `json:"verified_by,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
