package models

import "time"

// AssignmentSource records which flow created an assignment.
type AssignmentSource string

// Assignment provenance values.
const (
	AssignmentSourceMentorAdd    AssignmentSource = "mentor_add"
	AssignmentSourceQRJoin       AssignmentSource = "qr_join"
	AssignmentSourceQuizCreation AssignmentSource = "quiz_creation"
)

// Valid reports whether the source is a known provenance tag.
func (s AssignmentSource) Valid() bool {
	switch s {
	case AssignmentSourceMentorAdd, AssignmentSourceQRJoin, AssignmentSourceQuizCreation:
		return true
	}
	return false
}

// AssignmentStatus represents the progress of an assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusCompleted AssignmentStatus = "completed"
)

// Assignment grants one student access to one quiz instance.
type Assignment struct {
	ID             string           `db:"id" json:"id"`
	QuizInstanceID string           `db:"quiz_instance_id" json:"quizInstanceId"`
	StudentID      string           `db:"student_id" json:"studentId"`
	Status         AssignmentStatus `db:"status" json:"status"`
	Source         AssignmentSource `db:"assignment_source" json:"assignmentSource"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}
