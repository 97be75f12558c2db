package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/od-tracker-api/internal/models"
	appErrors "github.com/noah-isme/od-tracker-api/pkg/errors"
)

type mockAnalyticsStore struct {
	requests []models.ODRequest
	calls    int
}

func (m *mockAnalyticsStore) List(_ context.Context, _ models.ODRequestFilter) ([]models.ODRequest, error) {
	m.calls++
	return m.requests, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func TestCategorizeReason(t *testing.T) {
	cases := map[string]string{
		"National Hackathon at IIT":   "hackathon",
		"Coding competition finals":   "competition",
		"IEEE conference":             "conference",
		"AI workshop":                 "workshop",
		"Tech symposium":              "symposium",
		"Inter-college sports meet":   "sports",
		"Placement drive":             "placement",
		"Summer internship interview": "internship",
		"Medical leave":               "other",
		"":                            "other",
	}
	for reason, want := range cases {
		assert.Equalf(t, want, CategorizeReason(reason), "reason %q", reason)
	}
}

func TestParseSemesterWindow(t *testing.T) {
	start, end, err := ParseSemesterWindow("Odd 2025-2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), end)

	start, end, err = ParseSemesterWindow("Even 2024-2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), end)

	_, _, err = ParseSemesterWindow("Summer 2025")
	require.Error(t, err)
	_, _, err = ParseSemesterWindow("garbage")
	require.Error(t, err)
}

func TestParseSemesterWindowRoundTrip(t *testing.T) {
	for _, at := range []time.Time{
		time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	} {
		wantStart, wantEnd := SemesterWindowFor(at)
		start, end, err := ParseSemesterWindow(SemesterFor(at))
		require.NoError(t, err)
		assert.Equal(t, wantStart, start)
		assert.Equal(t, wantEnd, end)
	}
}

func TestDepartmentAnalyticsAggregation(t *testing.T) {
	september := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	october := time.Date(2025, time.October, 2, 0, 0, 0, 0, time.UTC)
	store := &mockAnalyticsStore{requests: []models.ODRequest{
		{Reason: "Hackathon", Status: models.StatusCompleted, SubmittedAt: september},
		{Reason: "Hackathon final round", Status: models.StatusSubmitted, SubmittedAt: september, AutoEscalated: true},
		{Reason: "IEEE conference", Status: models.StatusMentorApproved, SubmittedAt: october},
		{Reason: "Medical", Status: models.StatusMentorRejected, SubmittedAt: october},
	}}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(store, cacheSvc, zap.NewNop(), time.Minute)

	result, err := svc.DepartmentAnalytics(context.Background(), "CSE", "Odd 2025-2026")
	require.NoError(t, err)
	assert.Equal(t, "CSE", result.Department)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Escalated)

	categories := make(map[string]int)
	for _, bucket := range result.ByCategory {
		categories[bucket.Category] = bucket.Count
	}
	assert.Equal(t, 2, categories["hackathon"])
	assert.Equal(t, 1, categories["conference"])
	assert.Equal(t, 1, categories["other"])

	months := make(map[string]int)
	for _, bucket := range result.ByMonth {
		months[bucket.Month] = bucket.Count
	}
	assert.Equal(t, 2, months["2025-09"])
	assert.Equal(t, 2, months["2025-10"])
}

func TestDepartmentAnalyticsCaching(t *testing.T) {
	store := &mockAnalyticsStore{}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(store, cacheSvc, zap.NewNop(), time.Minute)

	ctx := context.Background()
	_, err := svc.DepartmentAnalytics(ctx, "CSE", "Odd 2025-2026")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)

	_, err = svc.DepartmentAnalytics(ctx, "CSE", "Odd 2025-2026")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestDepartmentAnalyticsRejectsBadSemester(t *testing.T) {
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), false)
	svc := NewAnalyticsService(&mockAnalyticsStore{}, cacheSvc, zap.NewNop(), time.Minute)

	_, err := svc.DepartmentAnalytics(context.Background(), "CSE", "Autumn 2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
