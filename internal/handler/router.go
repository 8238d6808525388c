package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/minhtran-dev/gradebook-api/internal/middleware"
	"github.com/minhtran-dev/gradebook-api/internal/models"
	"github.com/minhtran-dev/gradebook-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Accounts      *AccountHandler
	Scores        *ScoreHandler
	Rankings      *RankingHandler
	Students      *StudentHandler
	Subjects      *SubjectHandler
	Classes       *ClassHandler
	AcademicYears *AcademicYearHandler
	Criteria      *CriterionHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes attaches all API routes under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	accounts := authed.Group("/accounts", adminOnly)
	{
		accounts.GET("", h.Accounts.List)
		accounts.POST("", h.Accounts.Create)
		accounts.PATCH("/:id/lock", h.Accounts.ToggleLock)
		accounts.PATCH("/:id/verify", h.Accounts.Verify)
		accounts.DELETE("/:id", h.Accounts.Delete)
	}

	scores := authed.Group("/scores", staff)
	{
		scores.GET("", h.Scores.List)
		scores.PUT("", h.Scores.Upsert)
		scores.PUT("/batch", h.Scores.BulkUpsert)
	}

	rankings := authed.Group("/rankings")
	{
		rankings.GET("/class", h.Rankings.Class)
		rankings.GET("/school", h.Rankings.School)
		rankings.GET("/export", staff, h.Rankings.Export)
	}

	authed.GET("/students", staff, h.Students.List)

	subjects := authed.Group("/subjects")
	{
		subjects.GET("", h.Subjects.List)
		subjects.POST("", adminOnly, h.Subjects.Create)
		subjects.PUT("/:id", adminOnly, h.Subjects.Update)
		subjects.DELETE("/:id", adminOnly, h.Subjects.Delete)
	}

	classes := authed.Group("/classes")
	{
		classes.GET("", h.Classes.List)
		classes.POST("", adminOnly, h.Classes.Create)
		classes.POST("/generate", adminOnly, h.Classes.Generate)
		classes.PUT("/:id", adminOnly, h.Classes.Update)
		classes.DELETE("/:id", adminOnly, h.Classes.Delete)
		classes.DELETE("", adminOnly, h.Classes.DeleteByYear)
	}

	years := authed.Group("/academic-years")
	{
		years.GET("", h.AcademicYears.List)
		years.GET("/current", h.AcademicYears.Current)
		years.POST("", adminOnly, h.AcademicYears.Create)
		years.PUT("/:id", adminOnly, h.AcademicYears.Update)
		years.PATCH("/:id/current", adminOnly, h.AcademicYears.SetCurrent)
		years.DELETE("/:id", adminOnly, h.AcademicYears.Delete)
	}

	criteria := authed.Group("/criteria")
	{
		criteria.GET("", h.Criteria.List)
		criteria.POST("", adminOnly, h.Criteria.Create)
		criteria.PUT("/:id", adminOnly, h.Criteria.Update)
		criteria.DELETE("/:id", adminOnly, h.Criteria.Delete)
	}
}
