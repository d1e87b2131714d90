package dto

import "time"

// InviteView is the public, token-free view of a pending invite.
type InviteView struct {
	Email     string    `json:"email"`
	GroupID   string    `json:"groupId"`
	GroupName string    `json:"groupName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AcceptInviteRequest redeems an emailed invite token.
type AcceptInviteRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// AcceptInviteResponse reports the outcome of an invite redemption.
type AcceptInviteResponse struct {
	Joined             bool   `json:"joined"`
	AlreadyMember      bool   `json:"alreadyMember"`
	AssignmentsCreated int    `json:"assignmentsCreated"`
	GroupID            string `json:"groupId"`
}
