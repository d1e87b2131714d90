package dto

import (
	"time"

	"github.com/noah-isme/quizhub-api/internal/models"
)

// CreateQuizInstanceRequest schedules a quiz for a group.
type CreateQuizInstanceRequest struct {
	GroupID         string     `json:"groupId" validate:"required"`
	Status          string     `json:"status" validate:"omitempty,oneof=draft scheduled active"`
	ScheduledAt     *time.Time `json:"scheduledAt"`
	DurationSeconds int        `json:"durationSeconds" validate:"omitempty,min=30,max=86400"`
}

// CreateQuizInstanceResponse returns the created instance and fan-out result.
type CreateQuizInstanceResponse struct {
	Instance           *models.QuizInstance `json:"instance"`
	AssignmentsCreated int                  `json:"assignmentsCreated"`
}
