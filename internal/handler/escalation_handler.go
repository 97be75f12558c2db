package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/pkg/response"
)

// EscalationSweeper covers the manual sweep trigger.
type EscalationSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// EscalationHandler lets admins trigger an escalation sweep outside the
// scheduled ticks.
type EscalationHandler struct {
	monitor EscalationSweeper
}

// NewEscalationHandler constructs the handler.
func NewEscalationHandler(monitor EscalationSweeper) *EscalationHandler {
	return &EscalationHandler{monitor: monitor}
}

// Sweep godoc
// @Summary Run an escalation sweep now
// @Tags Escalation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /escalations/sweep [post]
func (h *EscalationHandler) Sweep(c *gin.Context) {
	escalated, err := h.monitor.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"escalated": escalated}, nil)
}
