package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type odRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.ODRequest, error)
	List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, error)
}

// ODRequestService serves read access over the request store with role-based
// scoping: students see only their own requests, mentors and HODs their
// department, principal and admin everything.
type ODRequestService struct {
	requests odRequestReader
	logger   *zap.Logger
}

// NewODRequestService constructs the service.
func NewODRequestService(requests odRequestReader, logger *zap.Logger) *ODRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ODRequestService{requests: requests, logger: logger}
}

// Get loads one request, enforcing viewer scope.
func (s *ODRequestService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.ODRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !canView(viewer, request) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this request")
	}
	return request, nil
}

// List returns requests visible to the viewer, narrowed by the query.
func (s *ODRequestService) List(ctx context.Context, query dto.ODRequestQuery, viewer *models.JWTClaims) ([]models.ODRequest, error) {
	filter := models.ODRequestFilter{
		StudentID:  query.StudentID,
		Department: query.Department,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	for _, raw := range query.Status {
		status := models.ODStatus(raw)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter: "+raw)
		}
		filter.Status = append(filter.Status, status)
	}
	filter.AutoEscalated = query.Escalated

	switch viewer.Role {
	case models.RoleStudent:
		filter.StudentID = viewer.UserID
	case models.RoleMentor, models.RoleHOD:
		filter.Department = viewer.Department
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

func canView(viewer *models.JWTClaims, request *models.ODRequest) bool {
	switch viewer.Role {
	case models.RoleStudent:
		return request.StudentID == viewer.UserID
	case models.RoleMentor, models.RoleHOD:
		return request.Department == viewer.Department
	case models.RolePrincipal, models.RoleAdmin:
		return true
	}
	return false
}
