package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type membershipStore interface {
	Upsert(ctx context.Context, membership *models.Membership) ([]string, error)
}

type assignmentFanOut interface {
	FanOut(ctx context.Context, groupID, studentID, mentorID string, provenance models.AssignmentSource) (int, error)
	AssignInstances(ctx context.Context, instances []models.QuizInstance, studentID, mentorID string, provenance models.AssignmentSource) (int, error)
}

type joinSessionRedeemer interface {
	Redeem(ctx context.Context, token string) (*models.JoinSession, error)
	RecordConsumption(ctx context.Context, sessionID string, newMember bool)
}

type inviteRedeemer interface {
	Verify(ctx context.Context, token string) (*models.Invite, error)
	MarkAccepted(ctx context.Context, inviteID string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// EnrollParams describes one membership to ensure. When InstancesLoaded is set the fan-out
// uses Instances instead of querying the group's live instances again.
type EnrollParams struct {
	GroupID         string
	StudentID       string
	MentorID        string
	Provenance      models.AssignmentSource
	Instances       []models.QuizInstance
	InstancesLoaded bool
}

// EnrollResult reports what Enroll did.
type EnrollResult struct {
	MembershipID  string
	AlreadyMember bool
	AssignedCount int
}

// EnrollmentService turns a redeemed join path into a membership plus assignments.
type EnrollmentService struct {
	memberships membershipStore
	groups      groupReader
	users       userReader
	fanOut      assignmentFanOut
	sessions    joinSessionRedeemer
	invites     inviteRedeemer
	telemetry   telemetryRecorder
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	memberships membershipStore,
	groups groupReader,
	users userReader,
	fanOut assignmentFanOut,
	sessions joinSessionRedeemer,
	invites inviteRedeemer,
	telemetry telemetryRecorder,
	metrics *MetricsService,
	logger *zap.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		memberships: memberships,
		groups:      groups,
		users:       users,
		fanOut:      fanOut,
		sessions:    sessions,
		invites:     invites,
		telemetry:   telemetry,
		metrics:     metrics,
		logger:      logger,
	}
}

// Enroll ensures the membership exists. Only a newly created membership is fanned out to the
// group's live quiz instances, so retries never duplicate work.
func (s *EnrollmentService) Enroll(ctx context.Context, params EnrollParams) (*EnrollResult, error) {
	if params.GroupID == "" || params.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group and student are required")
	}
	if !params.Provenance.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment source %q", params.Provenance))
	}

	ids, err := s.memberships.Upsert(ctx, &models.Membership{
		GroupID:   params.GroupID,
		StudentID: params.StudentID,
		Status:    models.MembershipStatusActive,
	})
	if err != nil {
		return nil, internalError(err, "failed to store membership")
	}
	if len(ids) == 0 {
		s.metrics.RecordEnrollment(params.Provenance, false)
		return &EnrollResult{AlreadyMember: true}, nil
	}

	var assigned int
	if params.InstancesLoaded {
		assigned, err = s.fanOut.AssignInstances(ctx, params.Instances, params.StudentID, params.MentorID, params.Provenance)
	} else {
		assigned, err = s.fanOut.FanOut(ctx, params.GroupID, params.StudentID, params.MentorID, params.Provenance)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEnrollment(params.Provenance, true)
	s.telemetry.Record(ctx, params.MentorID, models.EventGroupStudentAdded, map[string]interface{}{
		"group_id":          params.GroupID,
		"student_id":        params.StudentID,
		"quizzes_assigned":  assigned,
		"assignment_source": params.Provenance,
	})
	s.logger.Info("student enrolled",
		zap.String("group_id", params.GroupID),
		zap.String("student_id", params.StudentID),
		zap.String("source", string(params.Provenance)),
		zap.Int("assigned", assigned),
	)
	return &EnrollResult{MembershipID: ids[0], AssignedCount: assigned}, nil
}

// JoinWithToken redeems a scanned QR token for the student.
func (s *EnrollmentService) JoinWithToken(ctx context.Context, token, studentID string) (*dto.JoinWithTokenResponse, error) {
	session, err := s.sessions.Redeem(ctx, token)
	if err != nil {
		s.metrics.RecordRedemption("qr", redemptionResult(err))
		return nil, err
	}

	group, err := loadGroup(ctx, s.groups, session.GroupID)
	if err != nil {
		return nil, err
	}
	if group.IsArchived {
		s.metrics.RecordRedemption("qr", "archived")
		return nil, appErrors.Clone(appErrors.ErrConflict, "group has been archived")
	}
	if group.MentorID != session.MentorID {
		s.logger.Warn("join session mentor does not own group",
			zap.String("group_id", group.ID),
			zap.String("session_id", session.ID),
		)
		s.metrics.RecordRedemption("qr", "invalid")
		return nil, appErrors.Clone(appErrors.ErrConflict, "join code is invalid")
	}

	result, err := s.Enroll(ctx, EnrollParams{
		GroupID:    group.ID,
		StudentID:  studentID,
		MentorID:   session.MentorID,
		Provenance: models.AssignmentSourceQRJoin,
	})
	if err != nil {
		return nil, err
	}

	s.sessions.RecordConsumption(ctx, session.ID, !result.AlreadyMember)
	s.telemetry.Record(ctx, session.MentorID, models.EventGroupQRJoin, map[string]interface{}{
		"group_id":            group.ID,
		"student_id":          studentID,
		"already_member":      result.AlreadyMember,
		"assignments_created": result.AssignedCount,
	})
	s.metrics.RecordRedemption("qr", "ok")

	message := fmt.Sprintf("You have successfully joined the group %q", group.Name)
	if result.AlreadyMember {
		message = "You are already a member of this group"
	}
	return &dto.JoinWithTokenResponse{
		Joined:             !result.AlreadyMember,
		AlreadyMember:      result.AlreadyMember,
		AssignmentsCreated: result.AssignedCount,
		GroupID:            group.ID,
		GroupName:          group.Name,
		Message:            message,
	}, nil
}

// AcceptInvite redeems an emailed invite for the signed-in student. The membership is
// created before the invite is marked accepted so a failed attempt can be retried.
func (s *EnrollmentService) AcceptInvite(ctx context.Context, token string, student *models.JWTClaims) (*dto.AcceptInviteResponse, error) {
	if student == nil || student.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	invite, err := s.invites.Verify(ctx, token)
	if err != nil {
		s.metrics.RecordRedemption("invite", redemptionResult(err))
		return nil, err
	}

	email, err := s.studentEmail(ctx, student)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(email, invite.Email) {
		s.metrics.RecordRedemption("invite", "forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invite was issued to a different email address")
	}

	group, err := loadGroup(ctx, s.groups, invite.GroupID)
	if err != nil {
		return nil, err
	}
	if group.IsArchived {
		s.metrics.RecordRedemption("invite", "archived")
		return nil, appErrors.Clone(appErrors.ErrConflict, "group has been archived")
	}

	result, err := s.Enroll(ctx, EnrollParams{
		GroupID:    group.ID,
		StudentID:  student.UserID,
		MentorID:   invite.InvitedBy,
		Provenance: models.AssignmentSourceMentorAdd,
	})
	if err != nil {
		return nil, err
	}

	if err := s.invites.MarkAccepted(ctx, invite.ID); err != nil {
		if !appErrors.HasCode(err, appErrors.ErrInviteInactive.Code) {
			return nil, err
		}
		s.logger.Info("invite accepted concurrently", zap.String("invite_id", invite.ID))
	}
	s.telemetry.Record(ctx, student.UserID, models.EventGroupInviteAccepted, map[string]interface{}{
		"group_id":            group.ID,
		"invite_id":           invite.ID,
		"already_member":      result.AlreadyMember,
		"assignments_created": result.AssignedCount,
	})
	s.metrics.RecordRedemption("invite", "ok")

	return &dto.AcceptInviteResponse{
		Joined:             !result.AlreadyMember,
		AlreadyMember:      result.AlreadyMember,
		AssignmentsCreated: result.AssignedCount,
		GroupID:            group.ID,
	}, nil
}

func (s *EnrollmentService) studentEmail(ctx context.Context, student *models.JWTClaims) (string, error) {
	if email := strings.TrimSpace(student.Email); email != "" {
		return email, nil
	}
	user, err := s.users.FindByID(ctx, student.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "account not found")
		}
		return "", internalError(err, "failed to load account")
	}
	return strings.TrimSpace(user.Email), nil
}

func redemptionResult(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
