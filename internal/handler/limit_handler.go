package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// LimitPolicy covers the limit engine operations used by this handler.
type LimitPolicy interface {
	Snapshot(ctx context.Context, studentID string, at time.Time) (*models.ODLimitSnapshot, error)
	ListExceptionCandidates(ctx context.Context, department string) ([]models.ODRequest, error)
	ExceptionDecision(ctx context.Context, requestID string, reviewer *models.User, req dto.ExceptionDecisionRequest) (*models.ODRequest, error)
}

// LimitHandler exposes semester usage snapshots and exception review.
type LimitHandler struct {
	limits LimitPolicy
}

// NewLimitHandler constructs the handler.
func NewLimitHandler(limits LimitPolicy) *LimitHandler {
	return &LimitHandler{limits: limits}
}

// Snapshot godoc
// @Summary Semester usage snapshot
// @Description Count of non-rejected requests for the current semester against the cap
// @Tags Limits
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/od-limit [get]
func (h *LimitHandler) Snapshot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := c.Param("id")
	if claims.Role == models.RoleStudent && studentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	snapshot, err := h.limits.Snapshot(c.Request.Context(), studentID, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// ExceptionCandidates godoc
// @Summary List exception candidates
// @Description Unreviewed special-case requests from students at or over the cap
// @Tags Limits
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /od-requests/exceptions [get]
func (h *LimitHandler) ExceptionCandidates(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	department := c.Query("department")
	if department == "" {
		department = claims.Department
	}

	candidates, err := h.limits.ListExceptionCandidates(c.Request.Context(), department)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// ExceptionDecision godoc
// @Summary Decide an over-limit exception
// @Description Approve or deny a special-case request with mandatory remarks
// @Tags Limits
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ExceptionDecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /od-requests/{id}/exception-decision [post]
func (h *LimitHandler) ExceptionDecision(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ExceptionDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := h.limits.ExceptionDecision(c.Request.Context(), c.Param("id"), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
