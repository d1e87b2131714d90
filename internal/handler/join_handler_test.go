package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/quizhub-api/internal/dto"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
)

type qrJoinServiceMock struct {
	resp      *dto.JoinWithTokenResponse
	err       error
	lastToken string
	lastUser  string
}

func (m *qrJoinServiceMock) JoinWithToken(ctx context.Context, token, studentID string) (*dto.JoinWithTokenResponse, error) {
	m.lastToken, m.lastUser = token, studentID
	return m.resp, m.err
}

func TestJoinHandlerJoinWithToken(t *testing.T) {
	token := strings.Repeat("a1", 16)
	mockSvc := &qrJoinServiceMock{resp: &dto.JoinWithTokenResponse{Joined: true, GroupID: "group-1"}}
	h := NewJoinHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodPost, "/groups/join-with-token", `{"token":"`+token+`"}`, studentClaims())
	h.JoinWithToken(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, mockSvc.lastToken)
	assert.Equal(t, "student-1", mockSvc.lastUser)
}

func TestJoinHandlerRequiresToken(t *testing.T) {
	mockSvc := &qrJoinServiceMock{}
	h := NewJoinHandler(mockSvc, nil)

	for _, body := range []string{`{}`, `{"token":""}`, `{"token":`} {
		c, w := newTestContext(http.MethodPost, "/groups/join-with-token", body, studentClaims())
		h.JoinWithToken(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, mockSvc.lastToken)
}

func TestJoinHandlerUnknownTokenShapeIsNotFound(t *testing.T) {
	mockSvc := &qrJoinServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "QR session not found")}
	h := NewJoinHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodPost, "/groups/join-with-token", `{"token":"xyz"}`, studentClaims())
	h.JoinWithToken(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "xyz", mockSvc.lastToken)
}

func TestJoinHandlerMapsGone(t *testing.T) {
	h := NewJoinHandler(&qrJoinServiceMock{err: appErrors.Clone(appErrors.ErrGone, "join code has expired")}, nil)
	c, w := newTestContext(http.MethodPost, "/groups/join-with-token", `{"token":"`+strings.Repeat("0", 32)+`"}`, studentClaims())
	h.JoinWithToken(c)

	require.Equal(t, http.StatusGone, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "GONE", env.Error.Code)
}
