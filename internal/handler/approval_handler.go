package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
	"github.com/noah-isme/od-tracker-api/pkg/response"
	"github.com/noah-isme/od-tracker-api/pkg/storage"
)

// maxCertificateBytes caps uploaded proof documents at 5 MiB.
const maxCertificateBytes = 5 << 20

// ApprovalActions covers the state machine operations used by this handler.
type ApprovalActions interface {
	MentorAction(ctx context.Context, requestID string, actor *models.User, req dto.MentorActionRequest) (*models.ODRequest, error)
	HODAction(ctx context.Context, requestID string, actor *models.User, req dto.HODActionRequest) (*models.ODRequest, error)
	UploadCertificate(ctx context.Context, requestID string, actor *models.User, attachment models.Attachment) (*models.ODRequest, error)
	ApproveCertificate(ctx context.Context, requestID string, actor *models.User) (*models.ODRequest, error)
	Finalize(ctx context.Context, requestID string, actor *models.User) (*models.ODRequest, error)
	Override(ctx context.Context, requestID string, actor *models.User, req dto.OverrideRequest) (*models.ODRequest, error)
}

// ApprovalHandler exposes the mentor/HOD/principal workflow actions.
type ApprovalHandler struct {
	approvals ApprovalActions
	files     *storage.LocalStorage
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(approvals ApprovalActions, files *storage.LocalStorage) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, files: files}
}

// MentorAction godoc
// @Summary Mentor decision
// @Description Approve, reject or return a submitted request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.MentorActionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /od-requests/{id}/mentor-action [post]
func (h *ApprovalHandler) MentorAction(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.MentorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := h.approvals.MentorAction(c.Request.Context(), c.Param("id"), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// HODAction godoc
// @Summary HOD decision
// @Description Approve or reject a mentor-approved request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.HODActionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /od-requests/{id}/hod-action [post]
func (h *ApprovalHandler) HODAction(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.HODActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := h.approvals.HODAction(c.Request.Context(), c.Param("id"), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UploadCertificate godoc
// @Summary Upload event certificate
// @Description Attach the proof document to a mentor-approved request
// @Tags Approvals
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Request ID"
// @Param file formData file true "Certificate file"
// @Success 200 {object} response.Envelope
// @Router /od-requests/{id}/certificate [post]
func (h *ApprovalHandler) UploadCertificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate file is required"))
		return
	}
	if fileHeader.Size > maxCertificateBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate exceeds the 5 MiB size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close()

	requestID := c.Param("id")
	storedName := requestID + "-" + fileHeader.Filename
	if _, err := h.files.SaveStream(storedName, io.LimitReader(file, maxCertificateBytes)); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to store upload"))
		return
	}

	attachment := models.Attachment{
		FileName:   fileHeader.Filename,
		MIMEType:   fileHeader.Header.Get("Content-Type"),
		SizeBytes:  fileHeader.Size,
		StoredPath: storedName,
	}
	request, err := h.approvals.UploadCertificate(c.Request.Context(), requestID, actorFromClaims(claims), attachment)
	if err != nil {
		// The file hit disk before the state checks ran; remove it.
		_ = h.files.Delete(storedName)
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// ApproveCertificate godoc
// @Summary Approve uploaded certificate
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /od-requests/{id}/certificate/approve [post]
func (h *ApprovalHandler) ApproveCertificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.approvals.ApproveCertificate(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Finalize godoc
// @Summary Finalize an approved request
// @Description Complete the request and mark it logged in ERP
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /od-requests/{id}/finalize [post]
func (h *ApprovalHandler) Finalize(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.approvals.Finalize(c.Request.Context(), c.Param("id"), actorFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Override godoc
// @Summary Override a mentor rejection
// @Description HOD reversal of a mentor rejection with mandatory justification
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.OverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /od-requests/{id}/override [post]
func (h *ApprovalHandler) Override(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}

	request, err := h.approvals.Override(c.Request.Context(), c.Param("id"), actorFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
