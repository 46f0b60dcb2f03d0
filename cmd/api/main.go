package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/api"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/audit"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/db"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/reconcile"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/session"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/sheet"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/storage"
	syncsvc "github.com/EdwinT12/Teachers-Portal-main-sub001/internal/sync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	// Initialize session store and credential manager
	store, err := session.NewRedisStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer store.Close()

	creds := session.NewManager(cfg, store)

	// Initialize services
	sheetClient := sheet.NewClient(cfg)
	syncService := syncsvc.NewService(cfg, repo, creds, sheetClient)
	reconciler := reconcile.NewService(repo)
	auditor := audit.NewAuditor(repo)

	// Report archive is optional; the export endpoint degrades without it.
	var archive storage.Archive
	if cfg.Storage.S3.Bucket != "" {
		s3Archive, err := storage.NewS3Archive(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize report archive")
		}
		archive = s3Archive
	}

	handler := api.NewHandler(repo, syncService, reconciler, auditor, archive, cfg)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())

	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
