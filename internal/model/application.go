package model

import (
	"encoding/json"
	"time"
)

// Application types offered by the portal.
const (
	TypeBuildingPermit  = "building_permit"
	TypeBusinessLicense = "business_license"
	TypePlanningPermit  = "planning_permit"
	TypeZoningRequest   = "zoning_request"
)

// Application lifecycle statuses. The implied workflow is
// draft → submitted → under_review → {information_required ⇄ under_review}
// → approved | rejected, but the update path deliberately accepts any
// enumerated value from any other: the API stays compatible with clients
// that jump states, matching the behavior of the deployed portal.
const (
	StatusDraft               = "draft"
	StatusSubmitted           = "submitted"
	StatusUnderReview         = "under_review"
	StatusInformationRequired = "information_required"
	StatusApproved            = "approved"
	StatusRejected            = "rejected"
)

// ValidApplicationType reports whether t is one of the enumerated types.
func ValidApplicationType(t string) bool {
	switch t {
	case TypeBuildingPermit, TypeBusinessLicense, TypePlanningPermit, TypeZoningRequest:
		return true
	}
	return false
}

// ValidApplicationStatus reports whether s is one of the enumerated statuses.
func ValidApplicationStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview,
		StatusInformationRequired, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Application mirrors the `applications` table. Data is a free-form JSON
// payload whose schema varies by application type; the backend stores it
// opaquely. Only Status and Data change after creation.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owning user; all reads and writes are scoped to it.
//  Type      – one of the enumerated application types.
//  Status    – current lifecycle status.
//  Data      – raw JSON payload supplied by the applicant.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Application struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Documents is populated by list/get queries, not stored on the row.
	Documents []Document `json:"documents,omitempty"`
	// History is populated by the single-application lookup.
	History []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry is an append-only audit record in `application_history`.
// Entries are never updated; they disappear only when their application
// is deleted.
type HistoryEntry struct {
	ID             uint64    `json:"id"`
	ApplicationID  uint64    `json:"application_id"`
	UserID         uint64    `json:"user_id"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}
