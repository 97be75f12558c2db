package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type facultyStore interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, int, error)
}

// FacultyService serves the staff directory.
type FacultyService struct {
	store  facultyStore
	logger *zap.Logger
}

// NewFacultyService constructs the service.
func NewFacultyService(store facultyStore, logger *zap.Logger) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{store: store, logger: logger}
}

// List returns directory entries matching the filter plus pagination info.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	entries, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return entries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}, nil
}
