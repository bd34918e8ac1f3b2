package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/Karimk94/edms-archive-gateway/api/swagger"
	"github.com/Karimk94/edms-archive-gateway/internal/client"
	"github.com/Karimk94/edms-archive-gateway/internal/handler"
	"github.com/Karimk94/edms-archive-gateway/internal/middleware"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	"github.com/Karimk94/edms-archive-gateway/internal/repository"
	"github.com/Karimk94/edms-archive-gateway/internal/service"
	"github.com/Karimk94/edms-archive-gateway/pkg/cache"
	"github.com/Karimk94/edms-archive-gateway/pkg/config"
	"github.com/Karimk94/edms-archive-gateway/pkg/database"
	"github.com/Karimk94/edms-archive-gateway/pkg/logger"
	corsmiddleware "github.com/Karimk94/edms-archive-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/Karimk94/edms-archive-gateway/pkg/middleware/requestid"
)

// @title EDMS Archive Gateway
// @version 0.1.0
// @description Gateway for the bilingual employee document archive dashboard
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()
	upstream := client.NewUpstream(cfg.Upstream, metricsSvc, logr)

	var cacheRepo service.CacheRepository
	if cfg.Catalogs.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalogs.CacheTTL, logr, cfg.Catalogs.CacheEnabled && cacheRepo != nil)
	catalogSvc := service.NewCatalogService(upstream, cacheSvc, cfg.Catalogs.CacheTTL, logr)
	sessionSvc := service.NewSessionService(upstream, cfg.Session.Secret, cfg.Session.EditorMinimumLevel, logr)
	exportSvc := service.NewExportService(upstream, service.ExportConfig{
		Enabled: cfg.Export.Enabled,
		Title:   cfg.Export.Title,
	}, logr, nil, nil)

	var auditRepo *repository.AuditRepository
	if cfg.Audit.Enabled {
		var db *sqlx.DB
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Warn("database unavailable, audit trail disabled", zap.Error(err))
		} else {
			auditRepo = repository.NewAuditRepository(db)
		}
	}

	formCfg := service.ArchiveFormConfig{AllowedMIMEs: cfg.Documents.AllowedMIMEs}
	registry := service.NewObjectRegistry()

	hrHandler := handler.NewHRHandler(upstream)
	employeeHandler := handler.NewEmployeeHandler(upstream, catalogSvc, formCfg, cfg.Documents.MaxFileSizeBytes, logr)
	documentHandler := handler.NewDocumentHandler(upstream, registry, logr)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	dashboardHandler := handler.NewDashboardHandler(upstream)
	bulkHandler := handler.NewBulkUploadHandler(upstream)
	sessionHandler := handler.NewSessionHandler(cfg.Search)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	proxyHandler := handler.NewProxyHandler(cfg.Upstream.BaseURL, metricsSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api")
	api.Use(middleware.Session(sessionSvc, cfg.Session.CookieName))
	{
		api.GET("/session", sessionHandler.Current)

		api.GET("/hr/employees", hrHandler.Search)
		api.GET("/hr/employees/:id", hrHandler.Profile)

		api.GET("/employees", employeeHandler.List)
		api.GET("/employees/:id", employeeHandler.Get)

		api.GET("/dashboard/employees", dashboardHandler.List)
		api.GET("/dashboard/counters", dashboardHandler.Counters)

		api.GET("/catalogs", catalogHandler.List)

		api.GET("/documents/:id/content", documentHandler.Content)
		api.GET("/documents/:id/preview", documentHandler.Preview)
		api.GET("/objects/:ref", documentHandler.Object)
		api.DELETE("/objects/:ref", documentHandler.Revoke)

		api.GET("/export", exportHandler.Download)

		editors := api.Group("")
		editors.Use(middleware.RequireEditor())
		{
			editors.POST("/employees",
				middleware.Audit(auditRepo, models.AuditActionArchiveCreate, "employee"),
				employeeHandler.Create)
			editors.PUT("/employees/:id",
				middleware.Audit(auditRepo, models.AuditActionArchiveUpdate, "employee"),
				employeeHandler.Update)
			editors.POST("/employees/bulk-upload",
				middleware.Audit(auditRepo, models.AuditActionBulkUpload, "employee"),
				bulkHandler.Upload)
			editors.POST("/catalogs/refresh", catalogHandler.Refresh)
		}
	}

	r.NoRoute(proxyHandler.Handle)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("gateway starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("gateway failed", "error", err)
	}
}
