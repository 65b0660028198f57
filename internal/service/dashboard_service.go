package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const dashboardStatsKey = "dash:stats"

type dashboardStatsRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardService serves aggregate counts through the cache.
type DashboardService struct {
	repo     dashboardStatsRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardStatsRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Stats returns dashboard counts and whether they came from cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if s.cache.Get(ctx, dashboardStatsKey, &cached) {
		return &cached, true, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard stats")
	}
	stats.GeneratedAt = s.now().UTC()
	s.cache.Set(ctx, dashboardStatsKey, stats, s.cacheTTL)
	return stats, false, nil
}
