package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type stubStatsRepo struct {
	calls int
	stats models.DashboardStats
	err   error
}

func (s *stubStatsRepo) Stats(ctx context.Context) (*models.DashboardStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	stats := s.stats
	return &stats, nil
}

func TestDashboardStatsUsesCache(t *testing.T) {
	repo := &stubStatsRepo{stats: models.DashboardStats{TotalUsers: 40, TeachingStaff: 6, ScheduledSlots: 12}}
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, cache, time.Minute, nil)

	first, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, first.ScheduledSlots)
	assert.False(t, first.GeneratedAt.IsZero())

	second, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.TotalUsers, second.TotalUsers)
	assert.Equal(t, 1, repo.calls)

	cache.Invalidate(context.Background(), dashboardCachePattern)
	_, hit, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardStatsWithoutCache(t *testing.T) {
	repo := &stubStatsRepo{stats: models.DashboardStats{ActiveCourses: 3}}
	svc := NewDashboardService(repo, nil, 0, nil)

	for i := 0; i < 2; i++ {
		_, hit, err := svc.Stats(context.Background())
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardStatsRepositoryError(t *testing.T) {
	svc := NewDashboardService(&stubStatsRepo{err: errors.New("db down")}, nil, 0, nil)
	_, _, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))
}
