package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

// memoryInviteStore keeps one row per (group, email) like the pending_invites table.
type memoryInviteStore struct {
	rows      map[string]*models.Invite
	seq       int
	upsertErr error
}

func newMemoryInviteStore() *memoryInviteStore {
	return &memoryInviteStore{rows: make(map[string]*models.Invite)}
}

func (m *memoryInviteStore) Upsert(ctx context.Context, invite *models.Invite) (*models.Invite, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	key := invite.GroupID + "|" + invite.Email
	row, ok := m.rows[key]
	if !ok {
		m.seq++
		row = &models.Invite{ID: fmt.Sprintf("invite-%d", m.seq), GroupID: invite.GroupID, Email: invite.Email, CreatedAt: invite.CreatedAt}
		m.rows[key] = row
	}
	row.Token = invite.Token
	row.Status = models.InviteStatusPending
	row.InvitedBy = invite.InvitedBy
	row.ExpiresAt = invite.ExpiresAt
	row.AcceptedAt = nil
	row.UpdatedAt = invite.UpdatedAt
	stored := *row
	return &stored, nil
}

func (m *memoryInviteStore) FindPending(ctx context.Context, groupID, email string, now time.Time) (*models.Invite, error) {
	row, ok := m.rows[groupID+"|"+email]
	if !ok || row.Status != models.InviteStatusPending || !row.ExpiresAt.After(now) {
		return nil, sql.ErrNoRows
	}
	stored := *row
	return &stored, nil
}

func (m *memoryInviteStore) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	for _, row := range m.rows {
		if row.Token == token {
			stored := *row
			return &stored, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryInviteStore) byID(id string) *models.Invite {
	for _, row := range m.rows {
		if row.ID == id {
			return row
		}
	}
	return nil
}

func (m *memoryInviteStore) MarkExpired(ctx context.Context, id string) error {
	if row := m.byID(id); row != nil && row.Status == models.InviteStatusPending {
		row.Status = models.InviteStatusExpired
	}
	return nil
}

func (m *memoryInviteStore) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	row := m.byID(id)
	if row == nil || row.Status != models.InviteStatusPending {
		return false, nil
	}
	row.Status = models.InviteStatusAccepted
	row.AcceptedAt = &at
	return true, nil
}

type notifierSpy struct {
	invites     []InviteNotice
	assignments []AssignmentNotice
}

func (n *notifierSpy) NotifyInvite(ctx context.Context, notice InviteNotice) {
	n.invites = append(n.invites, notice)
}

func (n *notifierSpy) NotifyAssignments(ctx context.Context, notice AssignmentNotice) {
	n.assignments = append(n.assignments, notice)
}

type inviteFixture struct {
	svc       *InviteService
	store     *memoryInviteStore
	telemetry *telemetrySpy
	notifier  *notifierSpy
	clock     *fakeClock
}

func newInviteFixture() *inviteFixture {
	f := &inviteFixture{
		store:     newMemoryInviteStore(),
		telemetry: &telemetrySpy{},
		notifier:  &notifierSpy{},
		clock:     newFakeClock(),
	}
	groups := newStubGroups(
		models.Group{ID: "group-1", Name: "Algebra 9B", MentorID: "mentor-1"},
	)
	f.svc = NewInviteService(f.store, groups, f.telemetry, f.notifier, InviteConfig{TTL: 7 * 24 * time.Hour}, nil)
	f.svc.clock = f.clock.Now
	f.svc.tokens = sequentialTokens()
	return f
}

func TestInviteServiceUpsertPendingInvite(t *testing.T) {
	f := newInviteFixture()

	invite, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusPending, invite.Status)
	assert.Len(t, invite.Token, 64)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), invite.ExpiresAt)

	require.Len(t, f.notifier.invites, 1)
	assert.Equal(t, invite.Token, f.notifier.invites[0].Token)
	assert.Equal(t, "Algebra 9B", f.notifier.invites[0].GroupName)

	events := f.telemetry.named(models.EventGroupInviteCreated)
	require.Len(t, events, 1)
	assert.Equal(t, "mentor-1", events[0].actor)
	assert.NotContains(t, events[0].metadata, "token")
}

func TestInviteServiceUpsertRotatesToken(t *testing.T) {
	f := newInviteFixture()

	first, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)
	second, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token, second.Token)
	_, err = f.svc.Verify(context.Background(), first.Token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestInviteServiceUpsertFailure(t *testing.T) {
	f := newInviteFixture()
	f.store.upsertErr = errors.New("db down")

	_, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.notifier.invites)
	assert.Empty(t, f.telemetry.events)
}

func TestInviteServiceFindActivePending(t *testing.T) {
	f := newInviteFixture()

	found, err := f.svc.FindActivePending(context.Background(), "group-1", "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)
	found, err = f.svc.FindActivePending(context.Background(), "group-1", "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)

	f.clock.Advance(7 * 24 * time.Hour)
	found, err = f.svc.FindActivePending(context.Background(), "group-1", "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestInviteServiceVerifyLifecycle(t *testing.T) {
	f := newInviteFixture()
	invite, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)

	verified, err := f.svc.Verify(context.Background(), invite.Token)
	require.NoError(t, err)
	assert.Equal(t, invite.ID, verified.ID)

	view, err := f.svc.Describe(context.Background(), invite.Token)
	require.NoError(t, err)
	assert.Equal(t, "Algebra 9B", view.GroupName)
	assert.Equal(t, "new@example.com", view.Email)

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.Verify(context.Background(), invite.Token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrExpired.Code))
	assert.Equal(t, models.InviteStatusExpired, f.store.byID(invite.ID).Status)

	_, err = f.svc.Verify(context.Background(), invite.Token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInviteInactive.Code))
}

func TestInviteServiceRedeemOnlyOnce(t *testing.T) {
	f := newInviteFixture()
	invite, err := f.svc.UpsertPendingInvite(context.Background(), "group-1", "new@example.com", "mentor-1")
	require.NoError(t, err)

	redeemed, err := f.svc.Redeem(context.Background(), invite.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusAccepted, redeemed.Status)
	assert.NotNil(t, f.store.byID(invite.ID).AcceptedAt)

	_, err = f.svc.Redeem(context.Background(), invite.Token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInviteInactive.Code))

	err = f.svc.MarkAccepted(context.Background(), invite.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInviteInactive.Code))
}
