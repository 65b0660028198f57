package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))
	r.Use(middleware.WithResponseMeta())

	checks := make(map[string]handler.ReadinessCheck, len(app.ready))
	for name, check := range app.ready {
		checks[name] = check
	}
	metricsHandler := handler.NewMetricsHandler(app.metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), app)
	return r
}

func registerRoutes(api *gin.RouterGroup, app *application) {
	authHandler := handler.NewAuthHandler(app.auth)
	userHandler := handler.NewUserHandler(app.users)
	courseHandler := handler.NewCourseHandler(app.courses)
	assignmentHandler := handler.NewAssignmentHandler(app.assignment)
	availabilityHandler := handler.NewAvailabilityHandler(app.availability)
	scheduleHandler := handler.NewScheduleHandler(app.schedules)
	dashboardHandler := handler.NewDashboardHandler(app.dashboard)
	reconcileHandler := handler.NewReconcileHandler(app.reconcile)

	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("", middleware.JWT(app.auth))
	anyone := middleware.RequireAuthenticated()
	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrSelf := middleware.RequireRolesOrSelf("id", models.RoleAdmin)

	secured.GET("/auth/me", anyone, authHandler.Me)
	secured.POST("/users", admin, userHandler.Create)

	classes := secured.Group("/classes")
	classes.GET("", anyone, courseHandler.List)
	classes.POST("", admin, courseHandler.Create)
	classes.GET("/:id", anyone, courseHandler.Get)
	classes.GET("/:id/schedule", anyone, scheduleHandler.ByClass)
	classes.GET("/:id/schedule/export", anyone, scheduleHandler.ExportClass)

	teachers := secured.Group("/teachers/:id")
	teachers.GET("/schedule", adminOrSelf, scheduleHandler.ByTeacher)
	teachers.GET("/schedule/export", adminOrSelf, scheduleHandler.ExportTeacher)
	teachers.GET("/availability", adminOrSelf, availabilityHandler.Get)
	teachers.PUT("/availability", adminOrSelf, availabilityHandler.Provision)
	teachers.POST("/reconcile", admin, reconcileHandler.Teacher)

	secured.GET("/availability", admin, availabilityHandler.Query)

	schedules := secured.Group("/schedules", admin)
	schedules.GET("", scheduleHandler.List)
	schedules.POST("", assignmentHandler.Assign)
	schedules.DELETE("/:id", assignmentHandler.Unassign)
	schedules.PUT("/:id/teacher", assignmentHandler.Reassign)

	secured.GET("/dashboard", admin, dashboardHandler.Stats)

	secured.POST("/reconcile", admin, reconcileHandler.All)
	secured.GET("/reconcile/verify", admin, reconcileHandler.Verify)
}
