package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type flakyUserReader struct {
	*stubUserReader
	failFor string
}

func (f *flakyUserReader) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == f.failFor {
		return nil, errors.New("identity provider timeout")
	}
	return f.stubUserReader.FindByEmail(ctx, email)
}

type bulkFixture struct {
	svc         *BulkInviteService
	enrollments *enrollmentFixture
	notifier    *notifierSpy
	users       *flakyUserReader
}

func newBulkFixture() *bulkFixture {
	e := newEnrollmentFixture()
	notifier := &notifierSpy{}
	e.invites.notifier = notifier
	users := &flakyUserReader{stubUserReader: newStubUsers(
		models.User{ID: "student-1", Email: "ada@example.com", Role: models.RoleStudent},
		models.User{ID: "student-2", Email: "grace@example.com", Role: models.RoleStudent},
	)}
	fanOut := NewAssignmentService(e.instances, e.assignments, &stubMemberLister{}, e.telemetry, nil, nil)
	svc := NewBulkInviteService(e.groups, users, fanOut, e.svc, e.invites, notifier, e.telemetry, NewMetricsService(), nil, nil)
	return &bulkFixture{svc: svc, enrollments: e, notifier: notifier, users: users}
}

func statuses(resp *dto.AddStudentsResponse) map[string]dto.AddStudentStatus {
	out := make(map[string]dto.AddStudentStatus, len(resp.Results))
	for _, r := range resp.Results {
		out[r.Email] = r.Status
	}
	return out
}

func TestNormalizeEmails(t *testing.T) {
	got := NormalizeEmails([]string{" B@x.com", "a@x.com", "", "b@x.com ", "   ", "A@X.COM"})
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, got)
}

func TestBulkInviteServiceBatchIsolation(t *testing.T) {
	f := newBulkFixture()

	resp, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"Ada@Example.com", "not-an-email", "new@example.com"}, "mentor-1")
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, dto.AddStudentStatusAdded, resp.Results[0].Status)
	assert.Equal(t, "ada@example.com", resp.Results[0].Email)
	assert.Equal(t, "student-1", resp.Results[0].StudentID)
	assert.Equal(t, "assigned 2 quizzes", resp.Results[0].Notes)

	assert.Equal(t, dto.AddStudentStatusFailed, resp.Results[1].Status)
	assert.NotEmpty(t, resp.Results[1].Reason)

	assert.Equal(t, dto.AddStudentStatusInvited, resp.Results[2].Status)
	require.NotNil(t, resp.Results[2].ExpiresAt)
	assert.Empty(t, resp.Results[2].StudentID)

	assert.Equal(t, dto.AddStudentsSummary{Added: 1, Invited: 1, Failed: 1}, resp.Summary)
	require.Len(t, f.notifier.invites, 1)
	require.Len(t, f.notifier.assignments, 1)
	assert.Equal(t, 2, f.notifier.assignments[0].AssignedCount)

	bulk := f.enrollments.telemetry.named(models.EventGroupInviteBulk)
	require.Len(t, bulk, 1)
	assert.Equal(t, 3, bulk[0].metadata["total_emails"])
}

func TestBulkInviteServiceLookupFailureDoesNotAbortBatch(t *testing.T) {
	f := newBulkFixture()
	f.users.failFor = "grace@example.com"

	resp, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"grace@example.com", "ada@example.com"}, "mentor-1")
	require.NoError(t, err)
	got := statuses(resp)
	assert.Equal(t, dto.AddStudentStatusFailed, got["grace@example.com"])
	assert.Equal(t, dto.AddStudentStatusAdded, got["ada@example.com"])
	assert.Equal(t, "failed to look up account", resp.Results[0].Reason)
}

func TestBulkInviteServiceSuppressesReinvite(t *testing.T) {
	f := newBulkFixture()

	first, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"new@example.com"}, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, dto.AddStudentStatusInvited, first.Results[0].Status)

	second, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"new@example.com"}, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, dto.AddStudentStatusAlreadyInvited, second.Results[0].Status)
	assert.Nil(t, second.Results[0].ExpiresAt)
	assert.Equal(t, 1, second.Summary.AlreadyInvited)

	assert.Len(t, f.notifier.invites, 1)
	assert.Len(t, f.enrollments.inviteRepo.rows, 1)
}

func TestBulkInviteServiceAlreadyMember(t *testing.T) {
	f := newBulkFixture()
	_, err := f.enrollments.svc.Enroll(context.Background(), EnrollParams{
		GroupID: "group-1", StudentID: "student-2", MentorID: "mentor-1", Provenance: models.AssignmentSourceQRJoin,
	})
	require.NoError(t, err)

	resp, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"grace@example.com", "GRACE@example.com"}, "mentor-1")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, dto.AddStudentStatusAlreadyMember, resp.Results[0].Status)
	assert.Equal(t, "student-2", resp.Results[0].StudentID)
	assert.Empty(t, f.notifier.assignments)
}

func TestBulkInviteServiceRejectsBadRequests(t *testing.T) {
	f := newBulkFixture()

	_, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", nil, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{" ", ""}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"a@example.com"}, "mentor-2")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	_, err = f.svc.AddStudentsToGroup(context.Background(), "group-404", []string{"a@example.com"}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, f.enrollments.telemetry.named(models.EventGroupInviteBulk))
}

func TestBulkInviteServiceRenderCSV(t *testing.T) {
	f := newBulkFixture()
	resp, err := f.svc.AddStudentsToGroup(context.Background(), "group-1", []string{"ada@example.com", "bad"}, "mentor-1")
	require.NoError(t, err)

	out, err := f.svc.RenderCSV(resp)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Email,Status,Student ID,Invite Expires At,Notes,Reason", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ada@example.com,added,student-1,"))
	assert.True(t, strings.HasPrefix(lines[2], "bad,failed,"))
}

func TestAssignedNote(t *testing.T) {
	assert.Equal(t, "", assignedNote(0))
	assert.Equal(t, "assigned 1 quiz", assignedNote(1))
	assert.Equal(t, "assigned 3 quizzes", assignedNote(3))
}
