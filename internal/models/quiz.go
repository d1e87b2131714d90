package models

import "time"

// Quiz is the mentor-authored quiz an instance is scheduled from.
type Quiz struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	MentorID  string    `db:"mentor_id" json:"mentorId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// QuizInstanceStatus represents the lifecycle of a quiz instance.
type QuizInstanceStatus string

// Quiz instance statuses.
const (
	QuizInstanceStatusDraft     QuizInstanceStatus = "draft"
	QuizInstanceStatusScheduled QuizInstanceStatus = "scheduled"
	QuizInstanceStatusActive    QuizInstanceStatus = "active"
	QuizInstanceStatusClosed    QuizInstanceStatus = "closed"
)

// LiveQuizInstanceStatuses are the statuses eligible for assignment fan-out.
var LiveQuizInstanceStatuses = []QuizInstanceStatus{
	QuizInstanceStatusDraft,
	QuizInstanceStatusScheduled,
	QuizInstanceStatusActive,
}

// IsLive reports whether instances with this status still accept assignments.
func (s QuizInstanceStatus) IsLive() bool {
	for _, live := range LiveQuizInstanceStatuses {
		if s == live {
			return true
		}
	}
	return false
}

// QuizInstance is a scheduled run of a quiz for one group.
type QuizInstance struct {
	ID              string             `db:"id" json:"id"`
	QuizID          string             `db:"quiz_id" json:"quizId"`
	GroupID         string             `db:"group_id" json:"groupId"`
	Status          QuizInstanceStatus `db:"status" json:"status"`
	ScheduledAt     *time.Time         `db:"scheduled_at" json:"scheduledAt,omitempty"`
	DurationSeconds int                `db:"duration_seconds" json:"durationSeconds"`
	CreatedAt       time.Time          `db:"created_at" json:"createdAt"`
}
