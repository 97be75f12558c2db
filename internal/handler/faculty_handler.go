package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// FacultyHandler exposes the staff directory.
type FacultyHandler struct {
	faculty *service.FacultyService
}

// NewFacultyHandler constructs the handler.
func NewFacultyHandler(faculty *service.FacultyService) *FacultyHandler {
	return &FacultyHandler{faculty: faculty}
}

// List godoc
// @Summary Search the faculty directory
// @Tags Faculty
// @Produce json
// @Param search query string false "Name or email fragment"
// @Param department query string false "Department filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	filter := models.FacultyFilter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	entries, pagination, err := h.faculty.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
