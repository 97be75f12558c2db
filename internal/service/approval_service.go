package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

// allowedTransitions is the exhaustive forward transition table. The override
// and exception flows are the only paths out of mentor_rejected and are
// handled separately.
var allowedTransitions = map[models.ODStatus][]models.ODStatus{
	models.StatusSubmitted:           {models.StatusMentorApproved, models.StatusMentorRejected, models.StatusSubmitted},
	models.StatusMentorApproved:      {models.StatusHODApproved, models.StatusHODRejected, models.StatusCertificateUploaded},
	models.StatusCertificateUploaded: {models.StatusCertificateApproved},
	models.StatusHODApproved:         {models.StatusCompleted},
	models.StatusCertificateApproved: {models.StatusCompleted},
}

// CanTransition reports whether the forward table allows from -> to.
func CanTransition(from, to models.ODStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type approvalRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.ODRequest, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	ApplyOverride(ctx context.Context, params repository.OverrideParams) error
	AddAttachment(ctx context.Context, attachment *models.Attachment) error
}

type approvalAuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type approvalNotifier interface {
	Emit(ctx context.Context, n models.Notification)
}

type transitionRecorder interface {
	ObserveTransition(from, to models.ODStatus)
}

// ApprovalService owns the request status state machine. Every mutation is a
// conditional single-row update keyed on the status the actor read, so a
// concurrent action by another actor surfaces as a conflict rather than a
// silent lost update.
type ApprovalService struct {
	requests  approvalRequestStore
	audit     approvalAuditStore
	notifier  approvalNotifier
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService constructs the service. metrics may be nil.
func NewApprovalService(requests approvalRequestStore, audit approvalAuditStore, notifier approvalNotifier, metrics transitionRecorder, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		requests:  requests,
		audit:     audit,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MentorAction applies the mentor's decision on a submitted request.
// Reject requires non-empty feedback; return records feedback and keeps the
// request in submitted for the student to correct.
func (s *ApprovalService) MentorAction(ctx context.Context, requestID string, actor *models.User, req dto.MentorActionRequest) (*models.ODRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mentor action payload")
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusSubmitted {
		return nil, s.preconditionError(request.Status, "mentor actions apply only to submitted requests")
	}

	now := s.now()
	params := repository.TransitionParams{
		ID:            requestID,
		Expected:      models.StatusSubmitted,
		MentorName:    &actor.FullName,
		MentorActedAt: &now,
	}
	if req.Feedback != "" || req.Decision != dto.MentorApprove {
		params.MentorFeedback = &req.Feedback
	}

	var title, description string
	severity := models.SeverityInfo
	switch req.Decision {
	case dto.MentorApprove:
		params.Next = models.StatusMentorApproved
		severity = models.SeveritySuccess
		title = "Request approved by mentor"
		description = fmt.Sprintf("OD request for %s was approved by %s", request.Reason, actor.FullName)
	case dto.MentorReject:
		if strings.TrimSpace(req.Feedback) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
		}
		params.Next = models.StatusMentorRejected
		params.RejectionReason = &req.Feedback
		severity = models.SeverityError
		title = "Request rejected by mentor"
		description = fmt.Sprintf("OD request for %s was rejected: %s", request.Reason, req.Feedback)
	case dto.MentorReturn:
		if strings.TrimSpace(req.Feedback) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "returning a request requires feedback")
		}
		params.Next = models.StatusSubmitted
		severity = models.SeverityWarning
		title = "Request returned for correction"
		description = fmt.Sprintf("OD request for %s needs correction: %s", request.Reason, req.Feedback)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown mentor decision")
	}

	if err := s.transition(ctx, params); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor.ID, requestID, models.AuditActionMentorDecision, map[string]interface{}{
		"decision": req.Decision, "feedback": req.Feedback,
	})
	s.notifier.Emit(ctx, models.Notification{
		Severity:    severity,
		Title:       title,
		Description: description,
		RecipientID: &request.StudentID,
	})
	return s.load(ctx, requestID)
}

// HODAction applies the HOD decision on a mentor-approved request.
func (s *ApprovalService) HODAction(ctx context.Context, requestID string, actor *models.User, req dto.HODActionRequest) (*models.ODRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusMentorApproved {
		return nil, s.preconditionError(request.Status, "HOD decisions apply only to mentor-approved requests")
	}

	now := s.now()
	params := repository.TransitionParams{
		ID:         requestID,
		Expected:   models.StatusMentorApproved,
		HODName:    &actor.FullName,
		HODActedAt: &now,
	}
	if req.Feedback != "" {
		params.HODFeedback = &req.Feedback
	}

	severity := models.SeveritySuccess
	title := "Request approved by HOD"
	description := fmt.Sprintf("OD request for %s was approved by the HOD", request.Reason)
	if req.Approve {
		params.Next = models.StatusHODApproved
	} else {
		if strings.TrimSpace(req.Feedback) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
		}
		params.Next = models.StatusHODRejected
		params.RejectionReason = &req.Feedback
		severity = models.SeverityError
		title = "Request rejected by HOD"
		description = fmt.Sprintf("OD request for %s was rejected by the HOD: %s", request.Reason, req.Feedback)
	}

	if err := s.transition(ctx, params); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor.ID, requestID, models.AuditActionHODDecision, map[string]interface{}{
		"approve": req.Approve, "feedback": req.Feedback,
	})
	s.notifier.Emit(ctx, models.Notification{
		Severity:    severity,
		Title:       title,
		Description: description,
		RecipientID: &request.StudentID,
	})
	return s.load(ctx, requestID)
}

// UploadCertificate records a proof document against a mentor-approved
// request and moves it into the certificate flow. Only the owning student
// may upload.
func (s *ApprovalService) UploadCertificate(ctx context.Context, requestID string, actor *models.User, attachment models.Attachment) (*models.ODRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificates can only be uploaded by the request owner")
	}
	if request.Status != models.StatusMentorApproved {
		return nil, s.preconditionError(request.Status, "certificates can only be uploaded on mentor-approved requests")
	}

	attachment.RequestID = requestID
	if err := s.requests.AddAttachment(ctx, &attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment")
	}

	err = s.transition(ctx, repository.TransitionParams{
		ID:       requestID,
		Expected: models.StatusMentorApproved,
		Next:     models.StatusCertificateUploaded,
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, requestID)
}

// ApproveCertificate accepts the uploaded proof document.
func (s *ApprovalService) ApproveCertificate(ctx context.Context, requestID string, actor *models.User) (*models.ODRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusCertificateUploaded {
		return nil, s.preconditionError(request.Status, "no certificate awaiting approval")
	}

	now := s.now()
	err = s.transition(ctx, repository.TransitionParams{
		ID:         requestID,
		Expected:   models.StatusCertificateUploaded,
		Next:       models.StatusCertificateApproved,
		HODName:    &actor.FullName,
		HODActedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, models.Notification{
		Severity:    models.SeveritySuccess,
		Title:       "Certificate approved",
		Description: fmt.Sprintf("Certificate for OD request %s was verified", request.Reason),
		RecipientID: &request.StudentID,
	})
	return s.load(ctx, requestID)
}

// Finalize closes out an approved request and marks it ERP-logged.
func (s *ApprovalService) Finalize(ctx context.Context, requestID string, actor *models.User) (*models.ODRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusHODApproved && request.Status != models.StatusCertificateApproved {
		return nil, s.preconditionError(request.Status, "only fully approved requests can be finalized")
	}

	err = s.transition(ctx, repository.TransitionParams{
		ID:        requestID,
		Expected:  request.Status,
		Next:      models.StatusCompleted,
		ERPLogged: true,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor.ID, requestID, models.AuditActionFinalize, map[string]interface{}{
		"from": request.Status,
	})
	s.notifier.Emit(ctx, models.Notification{
		Severity:    models.SeveritySuccess,
		Title:       "OD request completed",
		Description: fmt.Sprintf("OD request for %s is complete and logged in ERP", request.Reason),
		RecipientID: &request.StudentID,
	})
	return s.load(ctx, requestID)
}

// Override reverses a mentor rejection at HOD level. The only overridable
// state is mentor_rejected; the original rejection is preserved for audit.
func (s *ApprovalService) Override(ctx context.Context, requestID string, actor *models.User, req dto.OverrideRequest) (*models.ODRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "justification is required")
	}
	if strings.TrimSpace(req.Justification) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "justification must not be empty")
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusMentorRejected {
		return nil, s.preconditionError(request.Status, "only mentor-rejected requests can be overridden")
	}

	original := request.Status
	err = s.requests.ApplyOverride(ctx, repository.OverrideParams{
		ID:                      requestID,
		OverriddenBy:            actor.FullName,
		OverriddenAt:            s.now(),
		Justification:           req.Justification,
		OriginalStatus:          original,
		OriginalRejectionReason: request.RejectionReason,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleWrite, "request state changed before the override was applied")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply override")
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(original, models.StatusMentorApproved)
	}

	s.recordAudit(ctx, actor.ID, requestID, models.AuditActionOverride, map[string]interface{}{
		"justification":  req.Justification,
		"originalStatus": original,
	})
	s.notifier.Emit(ctx, models.Notification{
		Severity:    models.SeverityWarning,
		Title:       "Mentor rejection overridden",
		Description: fmt.Sprintf("The HOD overrode the mentor rejection of the OD request for %s", request.Reason),
		RecipientID: &request.StudentID,
	})
	return s.load(ctx, requestID)
}

func (s *ApprovalService) load(ctx context.Context, requestID string) (*models.ODRequest, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *ApprovalService) transition(ctx context.Context, params repository.TransitionParams) error {
	if !CanTransition(params.Expected, params.Next) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move a request from %s to %s", params.Expected, params.Next))
	}
	if err := s.requests.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrStaleWrite, "request was modified by another actor")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(params.Expected, params.Next)
	}
	return nil
}

func (s *ApprovalService) preconditionError(current models.ODStatus, message string) error {
	if current.Terminal() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("request is in terminal state %s", current))
	}
	return appErrors.Clone(appErrors.ErrPreconditionFailed, message)
}

func (s *ApprovalService) recordAudit(ctx context.Context, actorID, requestID string, action models.AuditAction, values map[string]interface{}) {
	payload, _ := json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "od_request",
		ResourceID: &requestID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err))
	}
}
