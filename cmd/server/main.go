package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/minhtran-dev/gradebook-api/api/swagger"
	"github.com/minhtran-dev/gradebook-api/internal/handler"
	"github.com/minhtran-dev/gradebook-api/internal/middleware"
	"github.com/minhtran-dev/gradebook-api/internal/repository"
	"github.com/minhtran-dev/gradebook-api/internal/service"
	"github.com/minhtran-dev/gradebook-api/pkg/cache"
	"github.com/minhtran-dev/gradebook-api/pkg/config"
	"github.com/minhtran-dev/gradebook-api/pkg/database"
	"github.com/minhtran-dev/gradebook-api/pkg/logger"
	corsmiddleware "github.com/minhtran-dev/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/minhtran-dev/gradebook-api/pkg/middleware/requestid"
	"go.uber.org/zap"
)

// @title Gradebook API
// @version 1.0.0
// @description School gradebook: score entry, GPA rankings and reference data
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Ranking.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, ranking cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Ranking.CacheTTL, logr, true)
		}
	}

	accountRepo := repository.NewAccountRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	criterionRepo := repository.NewCriterionRepository(db)

	authService := service.NewAuthService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshExpiration, cfg.JWT.Issuer, nil, logr)
	accountService := service.NewAccountService(accountRepo, studentRepo, teacherRepo, yearRepo, nil, logr)
	scoreService := service.NewScoreService(scoreRepo, cacheService, nil, logr)
	rankingService := service.NewRankingService(studentRepo, accountRepo, scoreRepo, criterionRepo, cacheService, metricsService, logr, cfg.Ranking.CacheTTL)
	studentService := service.NewStudentService(studentRepo, logr)
	subjectService := service.NewSubjectService(subjectRepo, nil, logr)
	classService := service.NewClassService(classRepo, nil, logr)
	yearService := service.NewAcademicYearService(yearRepo, nil, logr)
	criterionService := service.NewCriterionService(criterionRepo, nil, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Accounts:      handler.NewAccountHandler(accountService),
		Scores:        handler.NewScoreHandler(scoreService),
		Rankings:      handler.NewRankingHandler(rankingService),
		Students:      handler.NewStudentHandler(studentService),
		Subjects:      handler.NewSubjectHandler(subjectService),
		Classes:       handler.NewClassHandler(classService),
		AcademicYears: handler.NewAcademicYearHandler(yearService),
		Criteria:      handler.NewCriterionHandler(criterionService),
		Metrics:       handler.NewMetricsHandler(metricsService),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authService)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
