package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/service"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// AnalyticsHandler exposes department aggregations.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Department godoc
// @Summary Department analytics
// @Description Category, status and monthly aggregations for one department and semester
// @Tags Analytics
// @Produce json
// @Param department query string true "Department"
// @Param semester query string false "Semester label, defaults to the current one"
// @Success 200 {object} response.Envelope
// @Router /analytics/department [get]
func (h *AnalyticsHandler) Department(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	department := c.Query("department")
	if department == "" {
		department = claims.Department
	}
	if department == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department is required"))
		return
	}

	semester := c.Query("semester")
	if semester == "" {
		semester = service.SemesterFor(time.Now().UTC())
	}

	result, err := h.analytics.DepartmentAnalytics(c.Request.Context(), department, semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
