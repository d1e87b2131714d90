package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
	"github.com/noah-isme/quizhub-api/pkg/export"
	"github.com/noah-isme/quizhub-api/pkg/logger"
)

type enroller interface {
	Enroll(ctx context.Context, params EnrollParams) (*EnrollResult, error)
}

type pendingInviter interface {
	FindActivePending(ctx context.Context, groupID, email string) (*models.Invite, error)
	UpsertPendingInvite(ctx context.Context, groupID, email, mentorID string) (*models.Invite, error)
}

type liveInstanceLister interface {
	LiveInstances(ctx context.Context, groupID string) ([]models.QuizInstance, error)
}

// BulkInviteService adds a batch of emails to a group. Each email is classified on its own
// and a failure never aborts the rest of the batch.
type BulkInviteService struct {
	groups    groupReader
	users     userReader
	instances liveInstanceLister
	enroller  enroller
	invites   pendingInviter
	notifier  notifier
	telemetry telemetryRecorder
	metrics   *MetricsService
	validator *validator.Validate
	csv       *export.CSVExporter
	logger    *zap.Logger
}

// NewBulkInviteService constructs BulkInviteService.
func NewBulkInviteService(
	groups groupReader,
	users userReader,
	instances liveInstanceLister,
	enroller enroller,
	invites pendingInviter,
	notifier notifier,
	telemetry telemetryRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	log *zap.Logger,
) *BulkInviteService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BulkInviteService{
		groups:    groups,
		users:     users,
		instances: instances,
		enroller:  enroller,
		invites:   invites,
		notifier:  notifier,
		telemetry: telemetry,
		metrics:   metrics,
		validator: validate,
		csv:       export.NewCSVExporter(),
		logger:    log,
	}
}

// NormalizeEmails trims and lower-cases every email, dropping blanks and duplicates while
// keeping first-seen order.
func NormalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// AddStudentsToGroup enrolls known students and invites unknown emails.
func (s *BulkInviteService) AddStudentsToGroup(ctx context.Context, groupID string, emails []string, mentorID string) (*dto.AddStudentsResponse, error) {
	if len(emails) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no emails provided")
	}
	normalized := NormalizeEmails(emails)
	if len(normalized) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "emails are empty after normalization")
	}

	group, err := loadOwnedGroup(ctx, s.groups, groupID, mentorID)
	if err != nil {
		return nil, err
	}
	instances, err := s.instances.LiveInstances(ctx, groupID)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.logger)
	resp := &dto.AddStudentsResponse{Results: make([]dto.AddStudentResult, 0, len(normalized))}
	for _, email := range normalized {
		result, err := s.processEmail(ctx, group, instances, email, mentorID)
		if err != nil {
			log.Warn("add student failed",
				zap.String("group_id", groupID),
				zap.String("email", email),
				zap.Error(err),
			)
			result = dto.AddStudentResult{Email: email, Status: dto.AddStudentStatusFailed, Reason: failureReason(err)}
		}
		resp.Summary.Record(result.Status)
		resp.Results = append(resp.Results, result)
	}

	s.metrics.RecordBulkSummary(resp.Summary)
	s.telemetry.Record(ctx, mentorID, models.EventGroupInviteBulk, map[string]interface{}{
		"group_id":     groupID,
		"total_emails": resp.Summary.Total(),
		"summary":      resp.Summary,
	})
	log.Info("bulk add completed",
		zap.String("group_id", groupID),
		zap.Int("added", resp.Summary.Added),
		zap.Int("invited", resp.Summary.Invited),
		zap.Int("already_member", resp.Summary.AlreadyMember),
		zap.Int("already_invited", resp.Summary.AlreadyInvited),
		zap.Int("failed", resp.Summary.Failed),
	)
	return resp, nil
}

func (s *BulkInviteService) processEmail(ctx context.Context, group *models.Group, instances []models.QuizInstance, email, mentorID string) (dto.AddStudentResult, error) {
	if err := s.validator.Var(email, "email"); err != nil {
		return dto.AddStudentResult{}, appErrors.Clone(appErrors.ErrValidation, "invalid email address")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.addExisting(ctx, group, instances, email, user, mentorID)
	case errors.Is(err, sql.ErrNoRows):
		return s.inviteUnknown(ctx, group, email, mentorID)
	default:
		return dto.AddStudentResult{}, internalError(err, "failed to look up account")
	}
}

func (s *BulkInviteService) addExisting(ctx context.Context, group *models.Group, instances []models.QuizInstance, email string, user *models.User, mentorID string) (dto.AddStudentResult, error) {
	enrolled, err := s.enroller.Enroll(ctx, EnrollParams{
		GroupID:         group.ID,
		StudentID:       user.ID,
		MentorID:        mentorID,
		Provenance:      models.AssignmentSourceMentorAdd,
		Instances:       instances,
		InstancesLoaded: true,
	})
	if err != nil {
		return dto.AddStudentResult{}, err
	}
	if enrolled.AlreadyMember {
		return dto.AddStudentResult{Email: email, Status: dto.AddStudentStatusAlreadyMember, StudentID: user.ID}, nil
	}

	s.notifier.NotifyAssignments(ctx, AssignmentNotice{
		Email:         email,
		GroupName:     group.Name,
		AssignedCount: enrolled.AssignedCount,
	})
	return dto.AddStudentResult{
		Email:     email,
		Status:    dto.AddStudentStatusAdded,
		StudentID: user.ID,
		Notes:     assignedNote(enrolled.AssignedCount),
	}, nil
}

func (s *BulkInviteService) inviteUnknown(ctx context.Context, group *models.Group, email, mentorID string) (dto.AddStudentResult, error) {
	pending, err := s.invites.FindActivePending(ctx, group.ID, email)
	if err != nil {
		return dto.AddStudentResult{}, err
	}
	if pending != nil {
		return dto.AddStudentResult{Email: email, Status: dto.AddStudentStatusAlreadyInvited}, nil
	}

	invite, err := s.invites.UpsertPendingInvite(ctx, group.ID, email, mentorID)
	if err != nil {
		return dto.AddStudentResult{}, err
	}
	expiresAt := invite.ExpiresAt
	return dto.AddStudentResult{Email: email, Status: dto.AddStudentStatusInvited, ExpiresAt: &expiresAt}, nil
}

// RenderCSV renders bulk results for download.
func (s *BulkInviteService) RenderCSV(resp *dto.AddStudentsResponse) ([]byte, error) {
	dataset := export.Dataset{
		Columns: []export.Column{
			{Key: "email", Label: "Email"},
			{Key: "status", Label: "Status"},
			{Key: "studentId", Label: "Student ID"},
			{Key: "expiresAt", Label: "Invite Expires At"},
			{Key: "notes", Label: "Notes"},
			{Key: "reason", Label: "Reason"},
		},
	}
	for _, r := range resp.Results {
		expires := ""
		if r.ExpiresAt != nil {
			expires = r.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"email":     r.Email,
			"status":    string(r.Status),
			"studentId": r.StudentID,
			"expiresAt": expires,
			"notes":     r.Notes,
			"reason":    r.Reason,
		})
	}
	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render csv")
	}
	return out, nil
}

func assignedNote(count int) string {
	switch {
	case count <= 0:
		return ""
	case count == 1:
		return "assigned 1 quiz"
	default:
		return fmt.Sprintf("assigned %d quizzes", count)
	}
}

func failureReason(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "unknown error"
}
