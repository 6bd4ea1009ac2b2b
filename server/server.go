package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/api"
	"github.com/Raman369AI/fileProcessor/api/handlers"
	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/internal/cron"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/services"
	"github.com/Raman369AI/fileProcessor/services/workers"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	workerPool   *workers.Manager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories; db is optional, the pipeline works on
	// artifacts alone
	var repos *repository.Repositories
	if db != nil {
		repos = repository.InitRepositories(db)
	}

	// Initialize services
	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	// In-process worker pool drains the queue in queue mode
	var pool *workers.Manager
	if svcs.Queue != nil {
		pool = workers.NewManager(cfg.WorkerConfig, &workers.Dependencies{
			Queue:     svcs.Queue,
			Extractor: svcs.ExtractorService,
			Store:     svcs.ResultsStore,
			Repos:     repos,
			Publisher: svcs.EventPublisher,
		}, appLogger)
	}

	cronManager := cron.NewCronManager(appLogger, nil, svcs.MonitorService, svcs.Queue)

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cronManager,
		workerPool:   pool,
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

func (s *Server) Initialize(ctx context.Context) error {
	deps := &handlers.Dependencies{
		MonitorConfig: s.config.MonitorConfig,
		Monitor:       s.services.MonitorService,
		Queue:         s.services.Queue,
		Pool:          s.workerPool,
		Store:         s.services.ResultsStore,
		Repos:         s.repositories,
		Log:           s.log,
	}

	api.RegisterRoutes(ctx, s.router, deps, s.config.AppConfig.APIKey)
	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		// Create a new span for the panic
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		// Mark span as failed
		ext.Error.Set(span, true)

		// Log panic details
		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		log.Printf("❌ Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	// Create root context for the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize server components
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	// Start the worker pool when queue mode is active
	if s.workerPool != nil {
		log.Println("Starting worker pool...")
		if err := s.workerPool.Start(ctx); err != nil {
			return err
		}
		log.Println("✅ Worker pool started successfully")
	}

	// Start the upload folder watcher if configured
	if s.services.WatcherService != nil {
		log.Println("Starting upload watcher...")
		if err := s.services.WatcherService.Start(ctx); err != nil {
			log.Printf("❌ Upload watcher error: %v", err)
		} else {
			log.Println("✅ Upload watcher started successfully")
		}
	}

	// Start the scheduled ingestion jobs
	log.Println("Starting cron manager...")
	if err := s.cronManager.Start(os.Getenv("POD_NAME"), os.Getenv("POD_NAMESPACE")); err != nil {
		return err
	}
	log.Println("✅ Cron manager started successfully")

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		log.Println("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ HTTP server error: %v", err)
		}
	})
	log.Println("✅ HTTP server started successfully")
	log.Println("FileProcessor is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for termination signal
	<-stop
	log.Println("Shutting down...")

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Shut down HTTP server
	log.Println("Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ HTTP server shutdown error: %v", err)
	} else {
		log.Println("✅ HTTP server shut down successfully")
	}

	// Stop scheduled jobs before draining workers
	log.Println("Stopping cron manager...")
	s.cronManager.Stop()

	if s.services.WatcherService != nil {
		log.Println("Stopping upload watcher...")
		s.services.WatcherService.Stop()
	}

	if s.workerPool != nil {
		log.Println("Stopping worker pool...")
		s.workerPool.Stop(10 * time.Second)
	}

	// Flush events and tracing last
	if s.services.EventPublisher != nil {
		s.services.EventPublisher.Close()
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
