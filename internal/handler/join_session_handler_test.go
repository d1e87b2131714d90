package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type joinSessionServiceMock struct {
	session     *models.JoinSession
	created     bool
	err         error
	revokedID   string
	sheet       []byte
	lastGroupID string
}

func (m *joinSessionServiceMock) GetOrCreateActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, bool, error) {
	m.lastGroupID = groupID
	return m.session, m.created, m.err
}

func (m *joinSessionServiceMock) Get(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error) {
	m.lastGroupID = groupID
	return m.session, m.err
}

func (m *joinSessionServiceMock) Revoke(ctx context.Context, groupID, mentorID, sessionID string) error {
	m.revokedID = sessionID
	return m.err
}

func (m *joinSessionServiceMock) RenderJoinSheet(ctx context.Context, groupID, mentorID string) ([]byte, error) {
	return m.sheet, m.err
}

func (m *joinSessionServiceMock) ToView(session *models.JoinSession) *dto.JoinSessionView {
	if session == nil {
		return nil
	}
	return &dto.JoinSessionView{ID: session.ID, Token: session.Token, TTLSeconds: 1800}
}

func (m *joinSessionServiceMock) TTL() time.Duration {
	return 30 * time.Minute
}

func TestJoinSessionHandlerCreateStatus(t *testing.T) {
	for _, created := range []bool{true, false} {
		mockSvc := &joinSessionServiceMock{session: &models.JoinSession{ID: "s-1", Token: "abc"}, created: created}
		h := NewJoinSessionHandler(mockSvc, nil)

		c, w := newTestContext(http.MethodPost, "/groups/group-1/qr-session", "", mentorClaims())
		c.Params = gin.Params{{Key: "id", Value: "group-1"}}
		h.Create(c)

		want := http.StatusOK
		if created {
			want = http.StatusCreated
		}
		require.Equal(t, want, w.Code)
		var got dto.JoinSessionResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
		assert.Equal(t, 30, got.TTLMinutes)
		require.NotNil(t, got.Session)
		assert.Equal(t, "s-1", got.Session.ID)
		assert.Equal(t, "group-1", mockSvc.lastGroupID)
	}
}

func TestJoinSessionHandlerGetWithoutSession(t *testing.T) {
	h := NewJoinSessionHandler(&joinSessionServiceMock{}, nil)
	c, w := newTestContext(http.MethodGet, "/groups/group-1/qr-session", "", mentorClaims())
	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Nil(t, got["session"])
	assert.Equal(t, float64(30), got["ttlMinutes"])
}

func TestJoinSessionHandlerRevoke(t *testing.T) {
	mockSvc := &joinSessionServiceMock{}
	h := NewJoinSessionHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodDelete, "/groups/group-1/qr-session", `{"sessionId":"s-1"}`, mentorClaims())
	h.Revoke(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s-1", mockSvc.revokedID)

	c, w = newTestContext(http.MethodDelete, "/groups/group-1/qr-session", `{}`, mentorClaims())
	h.Revoke(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinSessionHandlerSheet(t *testing.T) {
	h := NewJoinSessionHandler(&joinSessionServiceMock{sheet: []byte("%PDF-1.3")}, nil)
	c, w := newTestContext(http.MethodGet, "/groups/group-1/qr-session/sheet", "", mentorClaims())
	c.Params = gin.Params{{Key: "id", Value: "group-1"}}
	h.Sheet(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())

	h = NewJoinSessionHandler(&joinSessionServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "no active join session")}, nil)
	c, w = newTestContext(http.MethodGet, "/groups/group-1/qr-session/sheet", "", mentorClaims())
	h.Sheet(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
