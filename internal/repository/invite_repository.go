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

const inviteColumns = `id, group_id, email, token, status, invited_by, expires_at, accepted_at, created_at, updated_at`

// InviteRepository persists pending email invites.
type InviteRepository struct {
	db *sqlx.DB
}

// NewInviteRepository constructs the repository.
func NewInviteRepository(db *sqlx.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

// Upsert writes a pending invite keyed by (group_id, email). An existing row for the pair
// is reset to pending with the new token and expiry.
func (r *InviteRepository) Upsert(ctx context.Context, invite *models.Invite) (*models.Invite, error) {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = now
	}
	invite.UpdatedAt = now
	invite.Status = models.InviteStatusPending

	const query = `INSERT INTO pending_invites (id, group_id, email, token, status, invited_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (group_id, email) DO UPDATE
		SET token = EXCLUDED.token,
		    status = EXCLUDED.status,
		    invited_by = EXCLUDED.invited_by,
		    expires_at = EXCLUDED.expires_at,
		    accepted_at = NULL,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + inviteColumns
	var stored models.Invite
	err := r.db.GetContext(ctx, &stored, query,
		invite.ID, invite.GroupID, invite.Email, invite.Token, invite.Status,
		invite.InvitedBy, invite.ExpiresAt, invite.CreatedAt, invite.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert pending invite: %w", err)
	}
	return &stored, nil
}

// FindPending returns the pending, unexpired invite for (group, email).
func (r *InviteRepository) FindPending(ctx context.Context, groupID, email string, now time.Time) (*models.Invite, error) {
	const query = `SELECT ` + inviteColumns + ` FROM pending_invites
		WHERE group_id = $1 AND email = $2 AND status = $3 AND expires_at > $4
		LIMIT 1`
	var invite models.Invite
	if err := r.db.GetContext(ctx, &invite, query, groupID, email, models.InviteStatusPending, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pending invite: %w", err)
	}
	return &invite, nil
}

// FindByToken returns the invite carrying token regardless of status.
func (r *InviteRepository) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	const query = `SELECT ` + inviteColumns + ` FROM pending_invites WHERE token = $1`
	var invite models.Invite
	if err := r.db.GetContext(ctx, &invite, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find invite by token: %w", err)
	}
	return &invite, nil
}

// MarkExpired flips a pending invite to expired.
func (r *InviteRepository) MarkExpired(ctx context.Context, id string) error {
	const query = `UPDATE pending_invites SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, id, models.InviteStatusExpired, models.InviteStatusPending); err != nil {
		return fmt.Errorf("expire invite: %w", err)
	}
	return nil
}

// MarkAccepted transitions a pending invite to accepted. It reports false when the invite
// was no longer pending.
func (r *InviteRepository) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE pending_invites SET status = $2, accepted_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.InviteStatusAccepted, at, models.InviteStatusPending)
	if err != nil {
		return false, fmt.Errorf("accept invite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept invite: %w", err)
	}
	return affected > 0, nil
}
