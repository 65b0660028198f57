package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("bad token"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := staticValidator{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"teacher": {UserID: "t-1", Role: models.RoleTeacher},
		"student": {UserID: "s-1", Role: models.RoleStudent},
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r := gin.New()
	group := r.Group("/", JWT(validator))
	group.POST("/admin", RequireRoles(models.RoleAdmin), ok)
	group.GET("/teachers/:id", RequireRolesOrSelf("id", models.RoleAdmin), ok)
	group.GET("/anyone", RequireAuthenticated(), ok)
	return r
}

func doRequest(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthorizationMatrix(t *testing.T) {
	r := newAuthRouter()
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"missing token", http.MethodPost, "/admin", "", http.StatusUnauthorized},
		{"bad token", http.MethodPost, "/admin", "forged", http.StatusUnauthorized},
		{"admin allowed", http.MethodPost, "/admin", "admin", http.StatusOK},
		{"teacher forbidden", http.MethodPost, "/admin", "teacher", http.StatusForbidden},
		{"teacher reads own", http.MethodGet, "/teachers/t-1", "teacher", http.StatusOK},
		{"teacher reads other", http.MethodGet, "/teachers/t-2", "teacher", http.StatusForbidden},
		{"admin reads any teacher", http.MethodGet, "/teachers/t-2", "admin", http.StatusOK},
		{"student authenticated", http.MethodGet, "/anyone", "student", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, doRequest(r, tc.method, tc.path, tc.token))
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "abc", "Basic abc", "Bearer   "} {
		_, ok := bearerToken(header)
		assert.False(t, ok, header)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, method+" "+path)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/schedules/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	doRequest(r, http.MethodGet, "/schedules/abc", "")
	doRequest(r, http.MethodGet, "/nowhere", "")

	require.Len(t, observer.paths, 2)
	assert.Equal(t, "GET /schedules/:id", observer.paths[0])
	assert.Equal(t, "GET unmatched", observer.paths[1])
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	doRequest(r, http.MethodGet, "/", "")
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestExtractMetaWithoutEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	doRequest(r, http.MethodGet, "/", "")
	assert.Nil(t, meta)
}
