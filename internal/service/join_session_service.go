package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
	"github.com/noah-isme/quizhub-api/pkg/export"
)

// joinSessionCreateAttempts bounds retries when a racing session disappears before it is re-read.
const joinSessionCreateAttempts = 2

type joinSessionStore interface {
	ExpireStale(ctx context.Context, groupID, mentorID string, now time.Time) (int64, error)
	FindActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error)
	InsertActive(ctx context.Context, session *models.JoinSession) (bool, error)
	FindByToken(ctx context.Context, token string) (*models.JoinSession, error)
	FindByID(ctx context.Context, id string) (*models.JoinSession, error)
	MarkExpired(ctx context.Context, id string) error
	Revoke(ctx context.Context, groupID, id string) error
	RecordConsumption(ctx context.Context, id string, increment int, at time.Time) error
}

// JoinSessionConfig controls join code lifetime and link rendering.
type JoinSessionConfig struct {
	TTL     time.Duration
	BaseURL string
}

// JoinSessionService manages the QR join codes mentors project in class.
type JoinSessionService struct {
	sessions joinSessionStore
	groups   groupReader
	pdf      *export.PDFExporter
	ttl      time.Duration
	baseURL  string
	clock    Clock
	tokens   TokenGenerator
	logger   *zap.Logger
}

// NewJoinSessionService constructs JoinSessionService.
func NewJoinSessionService(sessions joinSessionStore, groups groupReader, cfg JoinSessionConfig, logger *zap.Logger) *JoinSessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JoinSessionService{
		sessions: sessions,
		groups:   groups,
		pdf:      export.NewPDFExporter(),
		ttl:      cfg.TTL,
		baseURL:  cfg.BaseURL,
		clock:    systemClock,
		tokens:   randomHexToken,
		logger:   logger,
	}
}

// TTL returns the lifetime of newly minted sessions.
func (s *JoinSessionService) TTL() time.Duration {
	return s.ttl
}

// GetOrCreateActive returns the mentor's active session for the group, minting one when
// none is live. created reports whether a new session was stored by this call.
func (s *JoinSessionService) GetOrCreateActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, bool, error) {
	if _, err := loadOwnedGroup(ctx, s.groups, groupID, mentorID); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < joinSessionCreateAttempts; attempt++ {
		session, created, err := s.tryCreateActive(ctx, groupID, mentorID)
		if err != nil {
			return nil, false, err
		}
		if session != nil {
			return session, created, nil
		}
	}
	return nil, false, internalError(errors.New("active join session kept changing"), "failed to create join session")
}

// tryCreateActive returns nil without error when the insert lost to a session that was
// no longer active by the time it was re-read.
func (s *JoinSessionService) tryCreateActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, bool, error) {
	current, err := s.currentActive(ctx, groupID, mentorID)
	if err != nil {
		return nil, false, err
	}
	if current != nil {
		return current, false, nil
	}

	token, err := s.tokens(joinSessionTokenBytes)
	if err != nil {
		return nil, false, internalError(err, "failed to generate join token")
	}
	now := s.clock()
	session := &models.JoinSession{
		GroupID:   groupID,
		MentorID:  mentorID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	inserted, err := s.sessions.InsertActive(ctx, session)
	if err != nil {
		return nil, false, internalError(err, "failed to create join session")
	}
	if inserted {
		s.logger.Info("join session created",
			zap.String("group_id", groupID),
			zap.String("session_id", session.ID),
			zap.Time("expires_at", session.ExpiresAt),
		)
		return session, true, nil
	}

	// A concurrent call won the partial unique index; hand back its session.
	winner, err := s.sessions.FindActive(ctx, groupID, mentorID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("join session winner no longer active", zap.String("group_id", groupID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, internalError(err, "failed to load join session")
	}
	return winner, false, nil
}

// Get returns the active session or nil. It never mints a new one.
func (s *JoinSessionService) Get(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error) {
	if _, err := loadOwnedGroup(ctx, s.groups, groupID, mentorID); err != nil {
		return nil, err
	}
	return s.currentActive(ctx, groupID, mentorID)
}

func (s *JoinSessionService) currentActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error) {
	if _, err := s.sessions.ExpireStale(ctx, groupID, mentorID, s.clock()); err != nil {
		return nil, internalError(err, "failed to expire join sessions")
	}
	session, err := s.sessions.FindActive(ctx, groupID, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load join session")
	}
	return session, nil
}

// Redeem resolves a scanned token into its active session. Expired sessions are flipped to
// expired on the way out.
func (s *JoinSessionService) Redeem(ctx context.Context, token string) (*models.JoinSession, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "join code not found")
		}
		return nil, internalError(err, "failed to load join session")
	}
	if session.Status != models.JoinSessionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrGone, "join code is no longer active")
	}
	if session.ExpiredAt(s.clock()) {
		if err := s.sessions.MarkExpired(ctx, session.ID); err != nil {
			s.logger.Warn("failed to mark join session expired", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrGone, "join code has expired")
	}
	return session, nil
}

// RecordConsumption stamps a redemption on the session. Only new memberships bump the
// counter. Failures are logged and never surface to the student.
func (s *JoinSessionService) RecordConsumption(ctx context.Context, sessionID string, newMember bool) {
	increment := 0
	if newMember {
		increment = 1
	}
	if err := s.sessions.RecordConsumption(ctx, sessionID, increment, s.clock()); err != nil {
		s.logger.Warn("failed to record join session consumption", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Revoke ends a session early. Revoking twice is a no-op.
func (s *JoinSessionService) Revoke(ctx context.Context, groupID, mentorID, sessionID string) error {
	if _, err := loadOwnedGroup(ctx, s.groups, groupID, mentorID); err != nil {
		return err
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "join session not found")
		}
		return internalError(err, "failed to load join session")
	}
	if session.GroupID != groupID {
		return appErrors.Clone(appErrors.ErrNotFound, "join session not found")
	}
	if err := s.sessions.Revoke(ctx, groupID, sessionID); err != nil {
		return internalError(err, "failed to revoke join session")
	}
	s.logger.Info("join session revoked", zap.String("group_id", groupID), zap.String("session_id", sessionID))
	return nil
}

// JoinURL is the link encoded in the QR code.
func (s *JoinSessionService) JoinURL(token string) string {
	return fmt.Sprintf("%s/join/%s", s.baseURL, token)
}

// ToView renders the session with its remaining lifetime computed now.
func (s *JoinSessionService) ToView(session *models.JoinSession) *dto.JoinSessionView {
	if session == nil {
		return nil
	}
	ttl := int64(session.ExpiresAt.Sub(s.clock()) / time.Second)
	if ttl < 0 {
		ttl = 0
	}
	return &dto.JoinSessionView{
		ID:             session.ID,
		GroupID:        session.GroupID,
		Token:          session.Token,
		JoinURL:        s.JoinURL(session.Token),
		Status:         string(session.Status),
		CreatedAt:      session.CreatedAt,
		ExpiresAt:      session.ExpiresAt,
		TTLSeconds:     ttl,
		ConsumedCount:  session.ConsumedCount,
		LastConsumedAt: session.LastConsumedAt,
	}
}

// RenderJoinSheet renders a printable PDF for the active session of the group.
func (s *JoinSessionService) RenderJoinSheet(ctx context.Context, groupID, mentorID string) ([]byte, error) {
	group, err := loadOwnedGroup(ctx, s.groups, groupID, mentorID)
	if err != nil {
		return nil, err
	}
	session, err := s.currentActive(ctx, groupID, mentorID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active join session")
	}
	out, err := s.pdf.RenderJoinSheet(export.JoinSheet{
		GroupName: group.Name,
		JoinURL:   s.JoinURL(session.Token),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, internalError(err, "failed to render join sheet")
	}
	return out, nil
}
