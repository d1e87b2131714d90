package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

const defaultInstanceDurationSeconds = 300

type quizInstanceStore interface {
	FindQuizByID(ctx context.Context, id string) (*models.Quiz, error)
	Create(ctx context.Context, instance *models.QuizInstance) error
}

type instanceAssigner interface {
	AssignInstanceToMembers(ctx context.Context, instance *models.QuizInstance, mentorID string) (int, error)
}

// QuizInstanceService schedules quizzes for groups and assigns them to current members.
type QuizInstanceService struct {
	instances quizInstanceStore
	groups    groupReader
	assigner  instanceAssigner
	validator *validator.Validate
	clock     Clock
	logger    *zap.Logger
}

// NewQuizInstanceService constructs QuizInstanceService.
func NewQuizInstanceService(instances quizInstanceStore, groups groupReader, assigner instanceAssigner, validate *validator.Validate, logger *zap.Logger) *QuizInstanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizInstanceService{
		instances: instances,
		groups:    groups,
		assigner:  assigner,
		validator: validate,
		clock:     systemClock,
		logger:    logger,
	}
}

// Create stores a new instance of the mentor's quiz and fans it out to the group. A failed
// fan-out is logged and reported as zero assignments.
func (s *QuizInstanceService) Create(ctx context.Context, quizID string, req dto.CreateQuizInstanceRequest, mentorID string) (*dto.CreateQuizInstanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz instance payload")
	}

	quiz, err := s.instances.FindQuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, internalError(err, "failed to load quiz")
	}
	if quiz.MentorID != mentorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not own this quiz")
	}
	group, err := loadOwnedGroup(ctx, s.groups, req.GroupID, mentorID)
	if err != nil {
		return nil, err
	}
	if group.IsArchived {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group has been archived")
	}

	status := models.QuizInstanceStatus(req.Status)
	if status == "" {
		status = models.QuizInstanceStatusScheduled
	}
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = defaultInstanceDurationSeconds
	}
	instance := &models.QuizInstance{
		QuizID:          quizID,
		GroupID:         group.ID,
		Status:          status,
		ScheduledAt:     req.ScheduledAt,
		DurationSeconds: duration,
		CreatedAt:       s.clock(),
	}
	if err := s.instances.Create(ctx, instance); err != nil {
		return nil, internalError(err, "failed to create quiz instance")
	}

	created, err := s.assigner.AssignInstanceToMembers(ctx, instance, mentorID)
	if err != nil {
		s.logger.Error("failed to assign quiz instance to group members",
			zap.String("quiz_instance_id", instance.ID),
			zap.String("group_id", group.ID),
			zap.Error(err),
		)
		created = 0
	}
	return &dto.CreateQuizInstanceResponse{Instance: instance, AssignmentsCreated: created}, nil
}
