package dto

import "time"

// JoinSessionView is the mentor-facing representation of a QR join session.
type JoinSessionView struct {
	ID             string     `json:"id"`
	GroupID        string     `json:"groupId"`
	Token          string     `json:"token"`
	JoinURL        string     `json:"joinUrl"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	TTLSeconds     int64      `json:"ttlSeconds"`
	ConsumedCount  int        `json:"consumedCount"`
	LastConsumedAt *time.Time `json:"lastConsumedAt,omitempty"`
}

// JoinSessionResponse wraps the current session, nil when none is active.
type JoinSessionResponse struct {
	Session    *JoinSessionView `json:"session"`
	TTLMinutes int              `json:"ttlMinutes"`
}

// RevokeJoinSessionRequest identifies the session to revoke.
type RevokeJoinSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// JoinWithTokenRequest redeems a QR join token.
type JoinWithTokenRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// JoinWithTokenResponse reports the outcome of a QR redemption.
type JoinWithTokenResponse struct {
	Joined             bool   `json:"joined"`
	AlreadyMember      bool   `json:"alreadyMember"`
	AssignmentsCreated int    `json:"assignmentsCreated"`
	GroupID            string `json:"groupId"`
	GroupName          string `json:"groupName"`
	Message            string `json:"message"`
}
