package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// PracticeTracker covers the weekly practice operations used by this handler.
type PracticeTracker interface {
	Upsert(ctx context.Context, studentID string, req dto.UpsertLeetCodeWeekRequest) (*models.LeetCodeWeek, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.LeetCodeWeek, error)
}

// PracticeGate reports the submission gate state without submitting.
type PracticeGate interface {
	PracticeStatus(ctx context.Context, studentID string) (*dto.PracticeStatusResponse, error)
}

// LeetCodeHandler exposes the student practice tracker.
type LeetCodeHandler struct {
	tracker PracticeTracker
	gate    PracticeGate
}

// NewLeetCodeHandler constructs the handler.
func NewLeetCodeHandler(tracker PracticeTracker, gate PracticeGate) *LeetCodeHandler {
	return &LeetCodeHandler{tracker: tracker, gate: gate}
}

// Upsert godoc
// @Summary Record a practice week
// @Description Create or replace the authenticated student's record for one week
// @Tags Practice
// @Accept json
// @Produce json
// @Param payload body dto.UpsertLeetCodeWeekRequest true "Week payload"
// @Success 200 {object} response.Envelope
// @Router /leetcode/weeks [put]
func (h *LeetCodeHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpsertLeetCodeWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid week payload"))
		return
	}

	week, err := h.tracker.Upsert(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}

// List godoc
// @Summary List practice weeks
// @Tags Practice
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leetcode/weeks [get]
func (h *LeetCodeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	weeks, err := h.tracker.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, nil)
}

// Status godoc
// @Summary Practice gate status
// @Description Whether the weekly practice requirement currently blocks submissions
// @Tags Practice
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leetcode/status [get]
func (h *LeetCodeHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.gate.PracticeStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
