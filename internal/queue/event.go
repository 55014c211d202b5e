// Package queue defines message payloads exchanged over the message broker.
package queue

// ApplicationStatusChangedEvent is published after an application's
// status transition has committed. It carries enough information for
// downstream consumers (review dashboards, analytics) to react without
// querying the primary database. Publication is best-effort: the
// triggering request never fails because the broker was unreachable.
type ApplicationStatusChangedEvent struct {
	ApplicationID   uint64 `json:"application_id"`
	UserID          uint64 `json:"user_id"`
	ApplicationType string `json:"application_type"`
	PreviousStatus  string `json:"previous_status"`
	NewStatus       string `json:"new_status"`
	ChangedAt       string `json:"changed_at"`
}
