package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

type joinSessionService interface {
	GetOrCreateActive(ctx context.Context, groupID, mentorID string) (*models.JoinSession, bool, error)
	Get(ctx context.Context, groupID, mentorID string) (*models.JoinSession, error)
	Revoke(ctx context.Context, groupID, mentorID, sessionID string) error
	RenderJoinSheet(ctx context.Context, groupID, mentorID string) ([]byte, error)
	ToView(session *models.JoinSession) *dto.JoinSessionView
	TTL() time.Duration
}

// JoinSessionHandler exposes the mentor QR session endpoints.
type JoinSessionHandler struct {
	service   joinSessionService
	validator *validator.Validate
}

// NewJoinSessionHandler builds a new handler.
func NewJoinSessionHandler(service joinSessionService, validate *validator.Validate) *JoinSessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &JoinSessionHandler{service: service, validator: validate}
}

func (h *JoinSessionHandler) respond(c *gin.Context, status int, session *models.JoinSession) {
	response.JSON(c, status, dto.JoinSessionResponse{
		Session:    h.service.ToView(session),
		TTLMinutes: int(h.service.TTL() / time.Minute),
	})
}

// Create godoc
// @Summary Get or create the active QR join session
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope "existing session"
// @Success 201 {object} response.Envelope "new session"
// @Router /groups/{id}/qr-session [post]
func (h *JoinSessionHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	session, created, err := h.service.GetOrCreateActive(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respond(c, status, session)
}

// Get godoc
// @Summary Get the active QR join session
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/qr-session [get]
func (h *JoinSessionHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	session, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// Revoke godoc
// @Summary Revoke a QR join session
// @Tags Groups
// @Accept json
// @Param id path string true "Group ID"
// @Param payload body dto.RevokeJoinSessionRequest true "Session"
// @Success 204
// @Router /groups/{id}/qr-session [delete]
func (h *JoinSessionHandler) Revoke(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RevokeJoinSessionRequest
	if !bindJSON(c, h.validator, &req, "sessionId is required") {
		return
	}
	if err := h.service.Revoke(c.Request.Context(), c.Param("id"), claims.UserID, req.SessionID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Sheet godoc
// @Summary Download a printable join sheet for the active session
// @Tags Groups
// @Produce application/pdf
// @Param id path string true "Group ID"
// @Success 200 {file} file
// @Router /groups/{id}/qr-session/sheet [get]
func (h *JoinSessionHandler) Sheet(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	groupID := c.Param("id")
	body, err := h.service.RenderJoinSheet(c.Request.Context(), groupID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "join-"+groupID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", body)
}
