package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/models"
	"github.com/noah-isme/quizhub-api/internal/repository"
)

type liveInstanceReader interface {
	ListLiveByGroup(ctx context.Context, groupID string) ([]models.QuizInstance, error)
}

type assignmentStore interface {
	InsertIgnoreExisting(ctx context.Context, assignments []models.Assignment) ([]repository.AssignmentKey, error)
}

type memberLister interface {
	ListActiveStudentIDs(ctx context.Context, groupID string) ([]string, error)
}

// AssignmentService grants students an assignment for every live quiz instance of a group.
type AssignmentService struct {
	instances   liveInstanceReader
	assignments assignmentStore
	members     memberLister
	telemetry   telemetryRecorder
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(instances liveInstanceReader, assignments assignmentStore, members memberLister, telemetry telemetryRecorder, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		instances:   instances,
		assignments: assignments,
		members:     members,
		telemetry:   telemetry,
		metrics:     metrics,
		logger:      logger,
	}
}

// LiveInstances lists the group's instances that still accept assignments.
func (s *AssignmentService) LiveInstances(ctx context.Context, groupID string) ([]models.QuizInstance, error) {
	instances, err := s.instances.ListLiveByGroup(ctx, groupID)
	if err != nil {
		return nil, internalError(err, "failed to load quiz instances")
	}
	return instances, nil
}

// FanOut assigns every live instance of the group to the student.
func (s *AssignmentService) FanOut(ctx context.Context, groupID, studentID, mentorID string, provenance models.AssignmentSource) (int, error) {
	instances, err := s.LiveInstances(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return s.AssignInstances(ctx, instances, studentID, mentorID, provenance)
}

// AssignInstances ensures one assignment per instance for the student and returns how many
// instances were considered. Pairs that already have an assignment are left untouched.
func (s *AssignmentService) AssignInstances(ctx context.Context, instances []models.QuizInstance, studentID, mentorID string, provenance models.AssignmentSource) (int, error) {
	if len(instances) == 0 {
		s.logger.Debug("no live quiz instances to assign",
			zap.String("student_id", studentID),
			zap.String("source", string(provenance)),
		)
		return 0, nil
	}

	rows := make([]models.Assignment, 0, len(instances))
	for _, instance := range instances {
		rows = append(rows, models.Assignment{
			QuizInstanceID: instance.ID,
			StudentID:      studentID,
			Status:         models.AssignmentStatusAssigned,
			Source:         provenance,
		})
	}
	inserted, err := s.assignments.InsertIgnoreExisting(ctx, rows)
	if err != nil {
		return 0, internalError(err, "failed to create quiz assignments")
	}

	if len(inserted) > 0 {
		ids := make([]string, 0, len(inserted))
		for _, key := range inserted {
			ids = append(ids, key.QuizInstanceID)
		}
		s.metrics.RecordAssignmentsCreated(provenance, len(inserted))
		s.telemetry.Record(ctx, mentorID, models.EventAssignmentCreated, map[string]interface{}{
			"student_id":        studentID,
			"quiz_instance_ids": ids,
			"assignment_source": provenance,
		})
	}
	s.logger.Debug("assignments ensured",
		zap.String("student_id", studentID),
		zap.String("source", string(provenance)),
		zap.Int("instances", len(instances)),
		zap.Int("created", len(inserted)),
	)
	return len(instances), nil
}

// AssignInstanceToMembers assigns a freshly created instance to every active member of its
// group and returns the number of assignments created.
func (s *AssignmentService) AssignInstanceToMembers(ctx context.Context, instance *models.QuizInstance, mentorID string) (int, error) {
	studentIDs, err := s.members.ListActiveStudentIDs(ctx, instance.GroupID)
	if err != nil {
		return 0, internalError(err, "failed to load group members")
	}
	if len(studentIDs) == 0 {
		return 0, nil
	}

	rows := make([]models.Assignment, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		rows = append(rows, models.Assignment{
			QuizInstanceID: instance.ID,
			StudentID:      studentID,
			Status:         models.AssignmentStatusAssigned,
			Source:         models.AssignmentSourceQuizCreation,
		})
	}
	inserted, err := s.assignments.InsertIgnoreExisting(ctx, rows)
	if err != nil {
		return 0, internalError(err, "failed to create quiz assignments")
	}

	if len(inserted) > 0 {
		s.metrics.RecordAssignmentsCreated(models.AssignmentSourceQuizCreation, len(inserted))
		s.telemetry.Record(ctx, mentorID, models.EventAssignmentCreated, map[string]interface{}{
			"quiz_instance_id":  instance.ID,
			"students":          len(inserted),
			"assignment_source": models.AssignmentSourceQuizCreation,
		})
	}
	return len(inserted), nil
}
