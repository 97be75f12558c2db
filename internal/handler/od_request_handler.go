package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// ODSubmissionService covers the submission gate used by this handler.
type ODSubmissionService interface {
	Submit(ctx context.Context, studentID string, req dto.SubmitODRequest) (*models.ODRequest, error)
}

// ODRequestReader covers scoped read access over the request store.
type ODRequestReader interface {
	Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.ODRequest, error)
	List(ctx context.Context, query dto.ODRequestQuery, viewer *models.JWTClaims) ([]models.ODRequest, error)
}

// ODRequestHandler exposes submission and listing endpoints.
type ODRequestHandler struct {
	submissions ODSubmissionService
	requests    ODRequestReader
}

// NewODRequestHandler constructs the handler.
func NewODRequestHandler(submissions ODSubmissionService, requests ODRequestReader) *ODRequestHandler {
	return &ODRequestHandler{submissions: submissions, requests: requests}
}

// Submit godoc
// @Summary Submit an OD request
// @Description Validate and create a new on-duty request for the authenticated student
// @Tags OD Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitODRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /od-requests [post]
func (h *ODRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	request, err := h.submissions.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get one OD request
// @Tags OD Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /od-requests/{id} [get]
func (h *ODRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.requests.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List OD requests
// @Description List requests visible to the caller, filtered by status, department and escalation flag
// @Tags OD Requests
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param department query string false "Department filter"
// @Param escalated query bool false "Only auto-escalated requests"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /od-requests [get]
func (h *ODRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := dto.ODRequestQuery{
		StudentID:  c.Query("studentId"),
		Department: c.Query("department"),
	}
	if raw := c.Query("status"); raw != "" {
		query.Status = strings.Split(raw, ",")
	}
	if raw := c.Query("escalated"); raw != "" {
		escalated, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "escalated must be a boolean"))
			return
		}
		query.Escalated = &escalated
	}
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	query.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.requests.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
