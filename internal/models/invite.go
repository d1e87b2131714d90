package models

import "time"

// InviteStatus represents the lifecycle of an emailed invite.
type InviteStatus string

// Invite statuses. Pending moves to expired or accepted and never back.
const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusAccepted InviteStatus = "accepted"
)

// Invite is a pending invitation for an email address that has no account yet.
type Invite struct {
	ID         string       `db:"id" json:"id"`
	GroupID    string       `db:"group_id" json:"groupId"`
	Email      string       `db:"email" json:"email"`
	Token      string       `db:"token" json:"-"`
	Status     InviteStatus `db:"status" json:"status"`
	InvitedBy  string       `db:"invited_by" json:"invitedBy"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expiresAt"`
	AcceptedAt *time.Time   `db:"accepted_at" json:"acceptedAt,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updatedAt"`
}

// ExpiredAt reports whether the invite is past its expiry at now.
func (i *Invite) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
