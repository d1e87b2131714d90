package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

type qrJoinService interface {
	JoinWithToken(ctx context.Context, token, studentID string) (*dto.JoinWithTokenResponse, error)
}

// JoinHandler lets students redeem QR join codes.
type JoinHandler struct {
	service   qrJoinService
	validator *validator.Validate
}

// NewJoinHandler builds a new handler.
func NewJoinHandler(service qrJoinService, validate *validator.Validate) *JoinHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &JoinHandler{service: service, validator: validate}
}

// JoinWithToken godoc
// @Summary Join a group with a QR token
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.JoinWithTokenRequest true "QR token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /groups/join-with-token [post]
func (h *JoinHandler) JoinWithToken(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.JoinWithTokenRequest
	if !bindJSON(c, h.validator, &req, "QR token is required") {
		return
	}
	result, err := h.service.JoinWithToken(c.Request.Context(), req.Token, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
