package models

import "time"

// JoinSessionStatus represents the lifecycle of a QR join session.
type JoinSessionStatus string

// Join session statuses. Revoked is terminal.
const (
	JoinSessionStatusActive  JoinSessionStatus = "active"
	JoinSessionStatusExpired JoinSessionStatus = "expired"
	JoinSessionStatusRevoked JoinSessionStatus = "revoked"
)

// JoinSession is a time limited QR join code for a group.
type JoinSession struct {
	ID             string            `db:"id" json:"id"`
	GroupID        string            `db:"group_id" json:"groupId"`
	MentorID       string            `db:"mentor_id" json:"mentorId"`
	Token          string            `db:"token" json:"token"`
	Status         JoinSessionStatus `db:"status" json:"status"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	ExpiresAt      time.Time         `db:"expires_at" json:"expiresAt"`
	ConsumedCount  int               `db:"consumed_count" json:"consumedCount"`
	LastConsumedAt *time.Time        `db:"last_consumed_at" json:"lastConsumedAt,omitempty"`
}

// ExpiredAt reports whether the session is past its expiry at now.
func (s *JoinSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
