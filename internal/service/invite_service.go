package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type inviteStore interface {
	Upsert(ctx context.Context, invite *models.Invite) (*models.Invite, error)
	FindPending(ctx context.Context, groupID, email string, now time.Time) (*models.Invite, error)
	FindByToken(ctx context.Context, token string) (*models.Invite, error)
	MarkExpired(ctx context.Context, id string) error
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)
}

// InviteConfig controls invite lifetime.
type InviteConfig struct {
	TTL time.Duration
}

// InviteService owns the pending invite ledger for emails without an account.
type InviteService struct {
	invites   inviteStore
	groups    groupReader
	telemetry telemetryRecorder
	notifier  notifier
	ttl       time.Duration
	clock     Clock
	tokens    TokenGenerator
	logger    *zap.Logger
}

// NewInviteService constructs InviteService.
func NewInviteService(invites inviteStore, groups groupReader, telemetry telemetryRecorder, notifier notifier, cfg InviteConfig, logger *zap.Logger) *InviteService {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteService{
		invites:   invites,
		groups:    groups,
		telemetry: telemetry,
		notifier:  notifier,
		ttl:       cfg.TTL,
		clock:     systemClock,
		tokens:    randomHexToken,
		logger:    logger,
	}
}

// UpsertPendingInvite stores a fresh pending invite for (group, email) and emails the token.
// An existing row for the pair is reset to pending with a rotated token and expiry.
func (s *InviteService) UpsertPendingInvite(ctx context.Context, groupID, email, mentorID string) (*models.Invite, error) {
	group, err := loadGroup(ctx, s.groups, groupID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens(inviteTokenBytes)
	if err != nil {
		return nil, internalError(err, "failed to generate invite token")
	}
	now := s.clock()
	stored, err := s.invites.Upsert(ctx, &models.Invite{
		GroupID:   groupID,
		Email:     email,
		Token:     token,
		Status:    models.InviteStatusPending,
		InvitedBy: mentorID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, internalError(err, "failed to store invite")
	}

	s.telemetry.Record(ctx, mentorID, models.EventGroupInviteCreated, map[string]interface{}{
		"group_id":   groupID,
		"email":      email,
		"expires_at": stored.ExpiresAt,
	})
	s.notifier.NotifyInvite(ctx, InviteNotice{
		Email:     stored.Email,
		GroupID:   groupID,
		GroupName: group.Name,
		Token:     stored.Token,
		ExpiresAt: stored.ExpiresAt,
	})
	return stored, nil
}

// FindActivePending returns the pending, unexpired invite for the pair or nil.
func (s *InviteService) FindActivePending(ctx context.Context, groupID, email string) (*models.Invite, error) {
	invite, err := s.invites.FindPending(ctx, groupID, email, s.clock())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load pending invite")
	}
	return invite, nil
}

// Verify checks that token belongs to a pending, unexpired invite without consuming it.
func (s *InviteService) Verify(ctx context.Context, token string) (*models.Invite, error) {
	invite, err := s.invites.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invite not found")
		}
		return nil, internalError(err, "failed to load invite")
	}
	if invite.Status != models.InviteStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInviteInactive, "invite is no longer active")
	}
	if invite.ExpiredAt(s.clock()) {
		if err := s.invites.MarkExpired(ctx, invite.ID); err != nil {
			s.logger.Warn("failed to mark invite expired", zap.String("invite_id", invite.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrExpired, "invite has expired")
	}
	return invite, nil
}

// Describe returns the token-free view shown on the signup page.
func (s *InviteService) Describe(ctx context.Context, token string) (*dto.InviteView, error) {
	invite, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	group, err := loadGroup(ctx, s.groups, invite.GroupID)
	if err != nil {
		return nil, err
	}
	return &dto.InviteView{
		Email:     invite.Email,
		GroupID:   invite.GroupID,
		GroupName: group.Name,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// Redeem verifies token and transitions the invite to accepted in one step. A concurrent
// redemption that got there first reports the invite as inactive.
func (s *InviteService) Redeem(ctx context.Context, token string) (*models.Invite, error) {
	invite, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.MarkAccepted(ctx, invite.ID); err != nil {
		return nil, err
	}
	invite.Status = models.InviteStatusAccepted
	return invite, nil
}

// MarkAccepted transitions a pending invite to accepted.
func (s *InviteService) MarkAccepted(ctx context.Context, inviteID string) error {
	accepted, err := s.invites.MarkAccepted(ctx, inviteID, s.clock())
	if err != nil {
		return internalError(err, "failed to accept invite")
	}
	if !accepted {
		return appErrors.Clone(appErrors.ErrInviteInactive, "invite is no longer active")
	}
	return nil
}
