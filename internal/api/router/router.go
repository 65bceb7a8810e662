// Package router sets up the API routes for the application.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/verustcode/materiality/consts"
	"github.com/verustcode/materiality/internal/api/handler"
	"github.com/verustcode/materiality/internal/api/middleware"
	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/telemetry"
)

// Dependencies are the services the routes are served from
type Dependencies struct {
	Config     *config.Config
	ConfigPath string
	Store      store.Store
	Mappings   *mapping.Store
	Content    content.Repository
	Generator  *report.Generator
	Exports    *exporter.ExportManager
}

// Setup configures all API routes
func Setup(r *gin.Engine, d *Dependencies) {
	cfg := d.Config

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(otelgin.Middleware(consts.ServiceName))

	healthHandler := handler.NewHealthHandler(d.Store, d.Mappings)
	r.GET("/health", healthHandler.Health)

	if cfg.Telemetry.ServesOnAPI() {
		r.GET(cfg.Telemetry.MetricsPath(), gin.WrapH(telemetry.MetricsHandler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", healthHandler.Health)

	// ============== Questionnaire options ==============
	optionsHandler := handler.NewOptionsHandler(d.Mappings, d.Content, d.Store)
	options := v1.Group("/options")
	{
		options.GET("/report-types", optionsHandler.ReportTypes)
		options.GET("/institutions", optionsHandler.Institutions)
		options.GET("/steps", optionsHandler.Steps)
		options.GET("/exposures/:exposure", optionsHandler.Exposures)
		options.GET("/sectors", optionsHandler.Sectors)
		options.GET("/scenarios", optionsHandler.Scenarios)
		options.GET("/materiality", optionsHandler.Materiality)
	}

	// ============== Sessions and reports ==============
	sessionHandler := handler.NewSessionHandler(d.Store, d.Mappings)
	reportHandler := handler.NewReportHandler(d.Store, d.Generator, d.Exports)
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionHandler.Create)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.GET("/:id/selections", sessionHandler.GetSelections)
		sessions.PUT("/:id/selections/:category", sessionHandler.PutSelections)
		sessions.DELETE("/:id/selections", sessionHandler.ClearSelections)
		sessions.GET("/:id/review", sessionHandler.Review)

		sessions.POST("/:id/report", reportHandler.Generate)
		sessions.GET("/:id/report/html", reportHandler.HTML)
		sessions.GET("/:id/report/export", reportHandler.Export)
		sessions.GET("/:id/reports", reportHandler.History)
	}

	// ============== Auth ==============
	authHandler := handler.NewAuthHandler(cfg, d.ConfigPath)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/setup/status", authHandler.GetSetupStatus)
		auth.POST("/setup", authHandler.SetupPassword)
		auth.GET("/me", middleware.JWTAuth(authHandler), authHandler.Me)
	}

	// ============== Admin (JWT) ==============
	adminHandler := handler.NewAdminHandler(d.Mappings, d.Content)
	admin := v1.Group("/admin")
	admin.Use(middleware.JWTAuth(authHandler))
	{
		admin.POST("/mappings/reload", adminHandler.ReloadMappings)
		admin.GET("/coverage", adminHandler.Coverage)
	}
}
