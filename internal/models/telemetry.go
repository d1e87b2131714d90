package models

import (
	"encoding/json"
	"time"
)

// Telemetry event names.
const (
	EventGroupInviteCreated  = "group_invite_created"
	EventGroupInviteAccepted = "group_invite_accepted"
	EventGroupInviteBulk     = "group_invite_bulk"
	EventGroupStudentAdded   = "group_student_added"
	EventGroupQRJoin         = "group_qr_join"
	EventAssignmentCreated   = "assignment_created"
)

// TelemetryEvent is an append-only product event row.
type TelemetryEvent struct {
	ID        string          `db:"id" json:"id"`
	UserID    *string         `db:"user_id" json:"userId,omitempty"`
	EventType string          `db:"event_type" json:"eventType"`
	Meta      json.RawMessage `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
