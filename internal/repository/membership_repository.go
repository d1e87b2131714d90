package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/quizhub-api/internal/models"
)

// MembershipRepository persists (group, student) memberships.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Upsert inserts the membership unless one already exists for the pair and returns the
// ids of the rows actually inserted. An empty result means the student was already a member.
func (r *MembershipRepository) Upsert(ctx context.Context, m *models.Membership) ([]string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = models.MembershipStatusActive
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}

	const query = `INSERT INTO group_students (id, group_id, student_id, status, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id, student_id) DO NOTHING
		RETURNING id`
	var inserted []string
	if err := r.db.SelectContext(ctx, &inserted, query, m.ID, m.GroupID, m.StudentID, m.Status, m.JoinedAt); err != nil {
		return nil, fmt.Errorf("upsert group membership: %w", err)
	}
	return inserted, nil
}

// ListActiveStudentIDs returns the students currently active in a group.
func (r *MembershipRepository) ListActiveStudentIDs(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT student_id FROM group_students WHERE group_id = $1 AND status = $2 ORDER BY joined_at`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, groupID, models.MembershipStatusActive); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return ids, nil
}
