package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/quizhub-api/internal/models"
)

const joinSessionColumns = `id, group_id, mentor_id, token, status, created_at, expires_at, consumed_count, last_consumed_at`

// JoinSessionRepository persists QR join sessions in group_qr_sessions.
type JoinSessionRepository struct {
	db *sqlx.DB
}

// NewJoinSessionRepository constructs the repository.
func NewJoinSessionRepository(db *sqlx.DB) *JoinSessionRepository {
	return &JoinSessionRepository{db: db}
}

// ExpireStale flips active sessions of the pair whose expiry has passed.
func (r *JoinSessionRepository) ExpireStale(ctx context.Context, groupID, mentorID string, now time.Time) (int64, error) {
	const query = `UPDATE group_qr_sessions SET status = $1
		WHERE group_id = $2 AND mentor_id = $3 AND status = $4 AND expires_at <= $5`
	res, err := r.db.ExecContext(ctx, query, models.JoinSessionStatusExpired, groupID, mentorID, models.JoinSessionStatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale join sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale join sessions: %w", err)
	}
	return affected, nil
}

// FindActive returns the active session for the pair.
func (r *JoinSessionRepository) FindActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error) {
	const query = `SELECT ` + joinSessionColumns + ` FROM group_qr_sessions
		WHERE group_id = $1 AND mentor_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`
	var session models.JoinSession
	if err := r.db.GetContext(ctx, &session, query, groupID, mentorID, models.JoinSessionStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active join session: %w", err)
	}
	return &session, nil
}

// InsertActive stores a new active session unless the pair already has one. It reports
// whether the row was inserted; false means a concurrent caller won the partial unique index.
func (r *JoinSessionRepository) InsertActive(ctx context.Context, session *models.JoinSession) (bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.Status = models.JoinSessionStatusActive

	const query = `INSERT INTO group_qr_sessions (id, group_id, mentor_id, token, status, created_at, expires_at, consumed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		ON CONFLICT (group_id, mentor_id) WHERE status = 'active' DO NOTHING
		RETURNING id`
	var inserted []string
	err := r.db.SelectContext(ctx, &inserted, query,
		session.ID, session.GroupID, session.MentorID, session.Token, session.Status, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert join session: %w", err)
	}
	return len(inserted) > 0, nil
}

// FindByToken returns the session carrying token regardless of status.
func (r *JoinSessionRepository) FindByToken(ctx context.Context, token string) (*models.JoinSession, error) {
	const query = `SELECT ` + joinSessionColumns + ` FROM group_qr_sessions WHERE token = $1`
	var session models.JoinSession
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find join session by token: %w", err)
	}
	return &session, nil
}

// FindByID returns a session by identifier.
func (r *JoinSessionRepository) FindByID(ctx context.Context, id string) (*models.JoinSession, error) {
	const query = `SELECT ` + joinSessionColumns + ` FROM group_qr_sessions WHERE id = $1`
	var session models.JoinSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find join session: %w", err)
	}
	return &session, nil
}

// MarkExpired flips an active session to expired.
func (r *JoinSessionRepository) MarkExpired(ctx context.Context, id string) error {
	const query = `UPDATE group_qr_sessions SET status = $2 WHERE id = $1 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, id, models.JoinSessionStatusExpired, models.JoinSessionStatusActive); err != nil {
		return fmt.Errorf("expire join session: %w", err)
	}
	return nil
}

// Revoke marks a session of the group as revoked. Already revoked sessions are left untouched.
func (r *JoinSessionRepository) Revoke(ctx context.Context, groupID, id string) error {
	const query = `UPDATE group_qr_sessions SET status = $3 WHERE id = $1 AND group_id = $2 AND status <> $3`
	if _, err := r.db.ExecContext(ctx, query, id, groupID, models.JoinSessionStatusRevoked); err != nil {
		return fmt.Errorf("revoke join session: %w", err)
	}
	return nil
}

// RecordConsumption bumps the usage counter by increment and stamps last_consumed_at.
func (r *JoinSessionRepository) RecordConsumption(ctx context.Context, id string, increment int, at time.Time) error {
	const query = `UPDATE group_qr_sessions
		SET consumed_count = COALESCE(consumed_count, 0) + $2, last_consumed_at = $3
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, increment, at); err != nil {
		return fmt.Errorf("record join session consumption: %w", err)
	}
	return nil
}
