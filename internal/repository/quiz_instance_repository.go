package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/quizhub-api/internal/models"
)

const quizInstanceColumns = `id, quiz_id, group_id, status, scheduled_at, duration_seconds, created_at`

// QuizInstanceRepository reads and creates quiz instances.
type QuizInstanceRepository struct {
	db *sqlx.DB
}

// NewQuizInstanceRepository constructs the repository.
func NewQuizInstanceRepository(db *sqlx.DB) *QuizInstanceRepository {
	return &QuizInstanceRepository{db: db}
}

// ListLiveByGroup returns the group's instances that are still eligible for assignment.
func (r *QuizInstanceRepository) ListLiveByGroup(ctx context.Context, groupID string) ([]models.QuizInstance, error) {
	statuses := make([]string, len(models.LiveQuizInstanceStatuses))
	for i, status := range models.LiveQuizInstanceStatuses {
		statuses[i] = string(status)
	}

	const query = `SELECT ` + quizInstanceColumns + ` FROM quiz_instances
		WHERE group_id = $1 AND status = ANY($2)
		ORDER BY created_at`
	var instances []models.QuizInstance
	if err := r.db.SelectContext(ctx, &instances, query, groupID, pq.Array(statuses)); err != nil {
		return nil, fmt.Errorf("list live quiz instances: %w", err)
	}
	return instances, nil
}

// FindQuizByID returns a quiz by identifier.
func (r *QuizInstanceRepository) FindQuizByID(ctx context.Context, id string) (*models.Quiz, error) {
	const query = `SELECT id, title, mentor_id, created_at FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// Create inserts a new quiz instance.
func (r *QuizInstanceRepository) Create(ctx context.Context, instance *models.QuizInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.NewString()
	}
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO quiz_instances (id, quiz_id, group_id, status, scheduled_at, duration_seconds, created_at)
		VALUES (:id, :quiz_id, :group_id, :status, :scheduled_at, :duration_seconds, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instance); err != nil {
		return fmt.Errorf("create quiz instance: %w", err)
	}
	return nil
}
