package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/internal/models"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

type inviteDescriber interface {
	Describe(ctx context.Context, token string) (*dto.InviteView, error)
}

type inviteAcceptor interface {
	AcceptInvite(ctx context.Context, token string, student *models.JWTClaims) (*dto.AcceptInviteResponse, error)
}

// InviteHandler exposes invite verification and redemption.
type InviteHandler struct {
	invites    inviteDescriber
	enrollment inviteAcceptor
	validator  *validator.Validate
}

// NewInviteHandler builds a new handler.
func NewInviteHandler(invites inviteDescriber, enrollment inviteAcceptor, validate *validator.Validate) *InviteHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &InviteHandler{invites: invites, enrollment: enrollment, validator: validate}
}

// Verify godoc
// @Summary Check an invite token before signup
// @Tags Invites
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /invites/{token} [get]
func (h *InviteHandler) Verify(c *gin.Context) {
	view, err := h.invites.Describe(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Accept godoc
// @Summary Accept an invite as the signed-in student
// @Tags Invites
// @Accept json
// @Produce json
// @Param payload body dto.AcceptInviteRequest true "Invite token"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /invites/accept [post]
func (h *InviteHandler) Accept(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.AcceptInviteRequest
	if !bindJSON(c, h.validator, &req, "invite token is required") {
		return
	}
	result, err := h.enrollment.AcceptInvite(c.Request.Context(), req.Token, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
