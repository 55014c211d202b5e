package model

import (
	"encoding/json"
	"time"
)

// User roles accepted by the portal. Citizens submit applications,
// staff review them, admins additionally manage accounts.
const (
	RoleCitizen = "citizen"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// User account states. Deletion is soft: the row stays but the
// account behaves as nonexistent for profile lookups.
const (
	UserActive    = "active"
	UserInactive  = "inactive"
	UserSuspended = "suspended"
	UserDeleted   = "deleted"
)

// User represents a row in the `users` table. Notification
// preferences are a free-form JSON object keyed by notification
// type; a missing key means the preference is enabled.
//
// Fields:
//  ID                      – primary key identifier of the user.
//  Email                   – unique email address (stored lowercase).
//  PasswordHash            – bcrypt hashed password.
//  FirstName, LastName     – display name parts.
//  Phone                   – contact phone number.
//  Role                    – citizen, staff or admin.
//  Status                  – active, inactive, suspended or deleted.
//  NotificationPreferences – raw JSON preference object (nullable).
//  CreatedAt, UpdatedAt    – row timestamps.
//  LastLoginAt             – last successful login (nullable).
type User struct {
	ID                      uint64          `json:"id"`
	Email                   string          `json:"email"`
	PasswordHash            string          `json:"-"`
	FirstName               string          `json:"first_name"`
	LastName                string          `json:"last_name"`
	Phone                   string          `json:"phone"`
	Role                    string          `json:"role"`
	Status                  string          `json:"status"`
	NotificationPreferences json.RawMessage `json:"notification_preferences,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
	LastLoginAt             *time.Time      `json:"last_login_at,omitempty"`
}
