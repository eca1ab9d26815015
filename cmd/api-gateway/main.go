package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unipath/unipath-api/api/swagger"
	"github.com/unipath/unipath-api/internal/handler"
	"github.com/unipath/unipath-api/internal/matching"
	"github.com/unipath/unipath-api/internal/middleware"
	"github.com/unipath/unipath-api/internal/models"
	"github.com/unipath/unipath-api/internal/repository"
	"github.com/unipath/unipath-api/internal/service"
	"github.com/unipath/unipath-api/pkg/cache"
	"github.com/unipath/unipath-api/pkg/config"
	"github.com/unipath/unipath-api/pkg/database"
	"github.com/unipath/unipath-api/pkg/jobs"
	"github.com/unipath/unipath-api/pkg/logger"
	corsmiddleware "github.com/unipath/unipath-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unipath/unipath-api/pkg/middleware/requestid"
	"github.com/unipath/unipath-api/pkg/storage"
)

// @title UniPath API
// @version 1.0.0
// @description Study-abroad counseling platform with AI-assisted university matching
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Redis is optional: the API degrades to uncached reads when it is down.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Matching.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewStudentProfileRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	profileSvc := service.NewStudentProfileService(profileRepo, validate, logr)
	universitySvc := service.NewUniversityService(universityRepo, validate, logr)

	engine := matching.NewEngine(matching.DefaultWeights)
	matchSvc := service.NewMatchService(profileRepo, universityRepo, matchRepo, engine, cacheSvc, metricsSvc, cfg.Matching.GenerateDeadline, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SigningKey, cfg.Exports.DownloadTTL)
	exportSvc := service.NewExportService(matchSvc, exportStore, exportSigner, cfg.Exports.Enabled, logr)

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()
	queue := jobs.NewQueue("match-generation", matchSvc.HandleGenerateJob, jobs.QueueConfig{
		Workers:    cfg.Matching.QueueWorkers,
		MaxRetries: cfg.Matching.QueueRetries,
		Logger:     logr,
	})
	queue.Start(queueCtx)
	defer queue.Stop()
	matchSvc.SetQueue(queue)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-queueCtx.Done():
				return
			case <-ticker.C:
				exportSvc.CleanupArchive(cfg.Exports.DownloadTTL)
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	universityHandler := handler.NewUniversityHandler(universitySvc)
	recommendationHandler := handler.NewRecommendationHandler(matchSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	// Download tokens are HMAC-signed and carry their own expiry.
	api.GET("/exports/:token", recommendationHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/profiles/me", profileHandler.Get)
	authed.PUT("/profiles/me", profileHandler.Upsert)

	authed.GET("/universities", universityHandler.List)
	authed.GET("/universities/:id", universityHandler.Get)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	authed.POST("/universities", adminOnly, universityHandler.Create)
	authed.PUT("/universities/:id", adminOnly, universityHandler.Update)
	authed.DELETE("/universities/:id", adminOnly, universityHandler.Deactivate)

	authed.GET("/recommendations", recommendationHandler.List)
	authed.POST("/recommendations/generate", recommendationHandler.Generate)
	authed.GET("/recommendations/export", recommendationHandler.Export)
	authed.DELETE("/recommendations", recommendationHandler.DeleteAll)
	authed.DELETE("/recommendations/:universityId", recommendationHandler.Delete)

	// Counselors and admins act on behalf of students through the same
	// handlers; students only reach their own user id.
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleCounselor), "SELF")
	users := authed.Group("/users/:userId")
	users.Use(staffOrSelf)
	users.GET("/profile", profileHandler.Get)
	users.PUT("/profile", profileHandler.Upsert)
	users.GET("/recommendations", recommendationHandler.List)
	users.POST("/recommendations/generate", recommendationHandler.Generate)
	users.GET("/recommendations/export", recommendationHandler.Export)
	users.DELETE("/recommendations", recommendationHandler.DeleteAll)
	users.DELETE("/recommendations/:universityId", recommendationHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
