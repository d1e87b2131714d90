package dto

import "time"

// AddStudentsRequest is the body of a bulk add-students call.
type AddStudentsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=500"`
}

// AddStudentStatus classifies the outcome for one email in a bulk call.
type AddStudentStatus string

// Bulk add outcomes.
const (
	AddStudentStatusAdded          AddStudentStatus = "added"
	AddStudentStatusAlreadyMember  AddStudentStatus = "already_member"
	AddStudentStatusInvited        AddStudentStatus = "invited"
	AddStudentStatusAlreadyInvited AddStudentStatus = "already_invited"
	AddStudentStatusFailed         AddStudentStatus = "failed"
)

// AddStudentResult reports what happened to one email. The invite token is never exposed.
type AddStudentResult struct {
	Email     string           `json:"email"`
	Status    AddStudentStatus `json:"status"`
	StudentID string           `json:"studentId,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// AddStudentsSummary counts results per outcome.
type AddStudentsSummary struct {
	Added          int `json:"added"`
	Invited        int `json:"invited"`
	AlreadyMember  int `json:"alreadyMember"`
	AlreadyInvited int `json:"alreadyInvited"`
	Failed         int `json:"failed"`
}

// Record increments the counter for status.
func (s *AddStudentsSummary) Record(status AddStudentStatus) {
	switch status {
	case AddStudentStatusAdded:
		s.Added++
	case AddStudentStatusInvited:
		s.Invited++
	case AddStudentStatusAlreadyMember:
		s.AlreadyMember++
	case AddStudentStatusAlreadyInvited:
		s.AlreadyInvited++
	case AddStudentStatusFailed:
		s.Failed++
	}
}

// Total returns the number of processed emails.
func (s AddStudentsSummary) Total() int {
	return s.Added + s.Invited + s.AlreadyMember + s.AlreadyInvited + s.Failed
}

// AddStudentsResponse is the result of a bulk add-students call.
type AddStudentsResponse struct {
	Results []AddStudentResult `json:"results"`
	Summary AddStudentsSummary `json:"summary"`
}
