package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/quizhub-api/internal/dto"
	appErrors "github.com/noah-isme/quizhub-api/pkg/errors"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

type quizInstanceService interface {
	Create(ctx context.Context, quizID string, req dto.CreateQuizInstanceRequest, mentorID string) (*dto.CreateQuizInstanceResponse, error)
}

// QuizInstanceHandler schedules quiz instances for groups.
type QuizInstanceHandler struct {
	service   quizInstanceService
	validator *validator.Validate
}

// NewQuizInstanceHandler builds a new handler.
func NewQuizInstanceHandler(service quizInstanceService, validate *validator.Validate) *QuizInstanceHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &QuizInstanceHandler{service: service, validator: validate}
}

// Create godoc
// @Summary Schedule a quiz for a group
// @Description Creates the instance and assigns it to every active member of the group.
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body dto.CreateQuizInstanceRequest true "Instance"
// @Success 201 {object} response.Envelope
// @Router /quizzes/{id}/instances [post]
func (h *QuizInstanceHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateQuizInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz instance payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
