// Package server provides the HTTP server for the application.
// It handles server lifecycle, API routes, background jobs and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/api/router"
	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/shared"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/logger"
)

// HTTP server timeout configuration
const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 120 * time.Second // PDF rendering runs inside the request
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultStopTimeout     = 5 * time.Second
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	configPath string
	httpServer *http.Server
	services   *shared.Services
	router     *gin.Engine
	store      store.Store
	cleanup    *store.SessionCleanupService
}

// New creates a new server instance. An empty configPath uses the default location.
func New(cfg *config.Config, configPath string, svc *shared.Services, s store.Store) *Server {
	if configPath == "" {
		configPath = config.ConfigPath
	}

	// Set Gin mode based on debug flag
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	return &Server{
		cfg:        cfg,
		configPath: configPath,
		services:   svc,
		router:     r,
		store:      s,
		cleanup:    store.NewSessionCleanupService(s.Session(), cfg.Sessions.CleanupSchedule, cfg.Sessions.RetentionDays),
	}
}

// SetupRoutes configures all API routes
func (s *Server) SetupRoutes() {
	router.Setup(s.router, &router.Dependencies{
		Config:     s.cfg,
		ConfigPath: s.configPath,
		Store:      s.store,
		Mappings:   s.services.Mappings,
		Content:    s.services.Content,
		Generator:  s.services.Generator,
		Exports:    s.services.Exports,
	})
}

// StartBackground starts the mapping reloader and the session cleanup
func (s *Server) StartBackground() error {
	if err := s.services.StartBackground(s.cfg); err != nil {
		return err
	}
	return s.cleanup.Start()
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	logger.Info("Starting HTTP server",
		zap.String("address", s.cfg.Server.Address()),
		zap.Bool("debug", s.cfg.Server.Debug),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown waits for shutdown signal and gracefully stops the server
// First signal triggers graceful shutdown, second signal forces immediate exit
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("Received shutdown signal, starting graceful shutdown (press Ctrl+C again to force exit)",
		zap.String("signal", sig.String()))

	go func() {
		sig := <-quit
		logger.Warn("Received second shutdown signal, forcing exit",
			zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}
	s.stopBackground()

	logger.Info("Server stopped")
}

// Stop stops the server immediately
func (s *Server) Stop() error {
	defer s.stopBackground()
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) stopBackground() {
	s.cleanup.Stop()
	s.services.Close()
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
