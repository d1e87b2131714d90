package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/quizhub-api/internal/models"
)

// AssignmentKey identifies an assignment by its uniqueness target.
type AssignmentKey struct {
	QuizInstanceID string `db:"quiz_instance_id"`
	StudentID      string `db:"student_id"`
}

// AssignmentRepository persists quiz assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// InsertIgnoreExisting writes the assignments in one statement, skipping pairs that already
// have a row, and returns the keys of the rows actually inserted.
func (r *AssignmentRepository) InsertIgnoreExisting(ctx context.Context, assignments []models.Assignment) ([]AssignmentKey, error) {
	if len(assignments) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	const cols = 6
	values := make([]string, 0, len(assignments))
	args := make([]interface{}, 0, len(assignments)*cols)
	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Status == "" {
			a.Status = models.AssignmentStatusAssigned
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		base := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, a.ID, a.QuizInstanceID, a.StudentID, a.Status, a.Source, a.CreatedAt)
	}

	query := `INSERT INTO quiz_assignments (id, quiz_instance_id, student_id, status, assignment_source, created_at)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (quiz_instance_id, student_id) DO NOTHING
		RETURNING quiz_instance_id, student_id`
	var inserted []AssignmentKey
	if err := r.db.SelectContext(ctx, &inserted, query, args...); err != nil {
		return nil, fmt.Errorf("insert quiz assignments: %w", err)
	}
	return inserted, nil
}
