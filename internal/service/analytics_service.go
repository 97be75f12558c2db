package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/dto"
	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

// reasonCategories maps keyword fragments onto the reason categories used in
// the department breakdown. Checked in order; first match wins.
var reasonCategories = []struct {
	keyword  string
	category string
}{
	{"hackathon", "hackathon"},
	{"competition", "competition"},
	{"conference", "conference"},
	{"workshop", "workshop"},
	{"symposium", "symposium"},
	{"sports", "sports"},
	{"placement", "placement"},
	{"internship", "internship"},
}

// CategorizeReason buckets free-text reasons for aggregation.
func CategorizeReason(reason string) string {
	lower := strings.ToLower(reason)
	for _, entry := range reasonCategories {
		if strings.Contains(lower, entry.keyword) {
			return entry.category
		}
	}
	return "other"
}

// ParseSemesterWindow converts a semester label back into its half-open
// [start, end) window. Labels follow SemesterFor: "Odd 2025-2026" or
// "Even 2024-2025".
func ParseSemesterWindow(label string) (time.Time, time.Time, error) {
	var kind string
	var firstYear, secondYear int
	if _, err := fmt.Sscanf(label, "%s %d-%d", &kind, &firstYear, &secondYear); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed semester label %q", label)
	}
	switch kind {
	case "Odd":
		return time.Date(firstYear, time.July, 1, 0, 0, 0, 0, time.UTC),
			time.Date(secondYear, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case "Even":
		return time.Date(secondYear, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(secondYear, time.July, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown semester kind %q", kind)
}

type analyticsRequestStore interface {
	List(ctx context.Context, filter models.ODRequestFilter) ([]models.ODRequest, error)
}

// AnalyticsService computes department-level aggregations over the request
// store, cached in Redis with a short TTL.
type AnalyticsService struct {
	requests analyticsRequestStore
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(requests analyticsRequestStore, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *AnalyticsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{requests: requests, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// DepartmentAnalytics aggregates one department's activity for a semester.
func (s *AnalyticsService) DepartmentAnalytics(ctx context.Context, department, semester string) (*dto.DepartmentAnalyticsResponse, error) {
	cacheKey := fmt.Sprintf("analytics:dept:%s:%s", department, semester)
	var cached dto.DepartmentAnalyticsResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	from, to, err := ParseSemesterWindow(semester)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	requests, err := s.requests.List(ctx, models.ODRequestFilter{
		Department:    department,
		SubmittedFrom: &from,
		SubmittedTo:   &to,
		Limit:         200,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	response := s.aggregate(department, semester, requests)
	if err := s.cache.Set(ctx, cacheKey, response, s.cacheTTL); err != nil {
		s.logger.Debug("failed to cache analytics", zap.String("key", cacheKey), zap.Error(err))
	}
	return response, nil
}

// InvalidateDepartment evicts cached aggregations after a write.
func (s *AnalyticsService) InvalidateDepartment(ctx context.Context, department string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:dept:%s:*", department)); err != nil {
		s.logger.Debug("analytics invalidation failed", zap.String("department", department), zap.Error(err))
	}
}

func (s *AnalyticsService) aggregate(department, semester string, requests []models.ODRequest) *dto.DepartmentAnalyticsResponse {
	byCategory := make(map[string]int)
	byStatus := make(map[string]int)
	byMonth := make(map[string]int)
	escalated := 0

	for _, request := range requests {
		byCategory[CategorizeReason(request.Reason)]++
		byStatus[string(request.Status)]++
		byMonth[request.SubmittedAt.Format("2006-01")]++
		if request.AutoEscalated {
			escalated++
		}
	}

	return &dto.DepartmentAnalyticsResponse{
		Department: department,
		Semester:   semester,
		Total:      len(requests),
		ByCategory: sortedCategoryCounts(byCategory),
		ByStatus:   sortedStatusCounts(byStatus),
		ByMonth:    sortedMonthBuckets(byMonth),
		Escalated:  escalated,
	}
}

func sortedCategoryCounts(counts map[string]int) []dto.CategoryCount {
	out := make([]dto.CategoryCount, 0, len(counts))
	for category, count := range counts {
		out = append(out, dto.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func sortedStatusCounts(counts map[string]int) []dto.StatusCount {
	out := make([]dto.StatusCount, 0, len(counts))
	for status, count := range counts {
		out = append(out, dto.StatusCount{Status: status, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func sortedMonthBuckets(counts map[string]int) []dto.MonthBucket {
	out := make([]dto.MonthBucket, 0, len(counts))
	for month, count := range counts {
		out = append(out, dto.MonthBucket{Month: month, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
