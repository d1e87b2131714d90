package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type stubQuizInstanceStore struct {
	quizzes   map[string]models.Quiz
	created   []*models.QuizInstance
	createErr error
}

func (s *stubQuizInstanceStore) FindQuizByID(ctx context.Context, id string) (*models.Quiz, error) {
	if q, ok := s.quizzes[id]; ok {
		return &q, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubQuizInstanceStore) Create(ctx context.Context, instance *models.QuizInstance) error {
	if s.createErr != nil {
		return s.createErr
	}
	instance.ID = "qi-new"
	s.created = append(s.created, instance)
	return nil
}

type stubInstanceAssigner struct {
	created int
	err     error
	calls   int
}

func (s *stubInstanceAssigner) AssignInstanceToMembers(ctx context.Context, instance *models.QuizInstance, mentorID string) (int, error) {
	s.calls++
	return s.created, s.err
}

func newQuizInstanceFixture() (*QuizInstanceService, *stubQuizInstanceStore, *stubInstanceAssigner) {
	store := &stubQuizInstanceStore{quizzes: map[string]models.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "Fractions", MentorID: "mentor-1"},
	}}
	assigner := &stubInstanceAssigner{created: 4}
	groups := newStubGroups(
		models.Group{ID: "group-1", Name: "Algebra 9B", MentorID: "mentor-1"},
		models.Group{ID: "group-old", Name: "Old", MentorID: "mentor-1", IsArchived: true},
	)
	return NewQuizInstanceService(store, groups, assigner, nil, nil), store, assigner
}

func TestQuizInstanceServiceCreateDefaults(t *testing.T) {
	svc, store, assigner := newQuizInstanceFixture()

	resp, err := svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-1"}, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.AssignmentsCreated)
	assert.Equal(t, models.QuizInstanceStatusScheduled, resp.Instance.Status)
	assert.Equal(t, 300, resp.Instance.DurationSeconds)
	require.Len(t, store.created, 1)
	assert.Equal(t, 1, assigner.calls)
}

func TestQuizInstanceServiceFanOutFailureIsNotFatal(t *testing.T) {
	svc, _, assigner := newQuizInstanceFixture()
	assigner.err = errors.New("db down")

	resp, err := svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-1", Status: "active", DurationSeconds: 600}, "mentor-1")
	require.NoError(t, err)
	assert.Zero(t, resp.AssignmentsCreated)
	assert.Equal(t, models.QuizInstanceStatusActive, resp.Instance.Status)
	assert.Equal(t, 600, resp.Instance.DurationSeconds)
}

func TestQuizInstanceServiceCreateRejections(t *testing.T) {
	svc, store, _ := newQuizInstanceFixture()

	_, err := svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-1", Status: "closed"}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Create(context.Background(), "quiz-404", dto.CreateQuizInstanceRequest{GroupID: "group-1"}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-1"}, "mentor-2")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-old"}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	store.createErr = errors.New("db down")
	_, err = svc.Create(context.Background(), "quiz-1", dto.CreateQuizInstanceRequest{GroupID: "group-1"}, "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}
