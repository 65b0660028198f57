package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingCache struct{}

func (failingCache) Get(context.Context, string, interface{}) error { return errors.New("conn reset") }
func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("conn reset")
}
func (failingCache) DeleteByPattern(context.Context, string) error { return errors.New("conn reset") }

func TestCacheServiceRoundTripAndHitRatio(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	assert.False(t, svc.Get(ctx, "dash:stats", &out))
	svc.Set(ctx, "dash:stats", map[string]int{"slots": 3}, 0)
	require.True(t, svc.Get(ctx, "dash:stats", &out))
	assert.Equal(t, 3, out["slots"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))

	svc.Invalidate(ctx, dashboardCachePattern)
	assert.False(t, svc.Get(ctx, "dash:stats", &out))
}

func TestCacheServiceFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewCacheService(failingCache{}, nil, 0, zap.New(core), true)
	ctx := context.Background()

	var out string
	assert.False(t, svc.Get(ctx, "k", &out))
	svc.Set(ctx, "k", "v", 0)
	svc.Invalidate(ctx, "k*")
	assert.Equal(t, 3, logs.Len())
}

func TestCacheServiceDisabled(t *testing.T) {
	assert.False(t, NewCacheService(nil, nil, 0, nil, true).Enabled())
	assert.False(t, NewCacheService(newMemoryCache(), nil, 0, nil, false).Enabled())
	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestMetricsHandlerExposesSlotCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordSlotOperation("assign", "ok")
	metrics.RecordDrift("assign")
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/schedules", http.StatusCreated, time.Millisecond)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"http_requests_total", "timetable_slot_operations_total", "timetable_consistency_drift_total"} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
