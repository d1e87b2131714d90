package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/quizhub-api/internal/dto"
	"github.com/noah-isme/quizhub-api/pkg/response"
)

type bulkInviteService interface {
	AddStudentsToGroup(ctx context.Context, groupID string, emails []string, mentorID string) (*dto.AddStudentsResponse, error)
	RenderCSV(resp *dto.AddStudentsResponse) ([]byte, error)
}

// GroupEnrollmentHandler exposes the mentor bulk add-students endpoint.
type GroupEnrollmentHandler struct {
	service   bulkInviteService
	validator *validator.Validate
}

// NewGroupEnrollmentHandler builds a new handler.
func NewGroupEnrollmentHandler(service bulkInviteService, validate *validator.Validate) *GroupEnrollmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &GroupEnrollmentHandler{service: service, validator: validate}
}

// AddStudents godoc
// @Summary Add students to a group by email
// @Description Enrolls emails that already have an account and invites the rest. Each email is reported separately.
// @Tags Groups
// @Accept json
// @Produce json
// @Produce text/csv
// @Param id path string true "Group ID"
// @Param format query string false "Set to csv to download the results"
// @Param payload body dto.AddStudentsRequest true "Emails"
// @Success 200 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /groups/{id}/add-students [post]
func (h *GroupEnrollmentHandler) AddStudents(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.AddStudentsRequest
	if !bindJSON(c, h.validator, &req, "emails must be a non-empty list") {
		return
	}

	result, err := h.service.AddStudentsToGroup(c.Request.Context(), c.Param("id"), req.Emails, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "csv" {
		body, err := h.service.RenderCSV(result)
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := fmt.Sprintf("add-students-%s.csv", time.Now().UTC().Format("20060102-150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
