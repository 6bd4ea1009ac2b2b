package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/internal/database"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/server"
	"github.com/Raman369AI/fileProcessor/services/events"
	"github.com/Raman369AI/fileProcessor/services/extractor"
	"github.com/Raman369AI/fileProcessor/services/queue"
	"github.com/Raman369AI/fileProcessor/services/results"
	"github.com/Raman369AI/fileProcessor/services/workers"
)

func main() {
	app := &cli.App{
		Name:  "fileprocessor",
		Usage: "email attachment ingestion and processing pipeline",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "start the API server with scheduled ingestion and in-process workers",
				Action: runServer,
			},
			{
				Name:  "worker",
				Usage: "start a standalone worker pool draining the attachment queue",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "number of workers, overrides WORKER_COUNT",
					},
				},
				Action: runWorkers,
			},
			{
				Name:   "migrate",
				Usage:  "run database migrations",
				Action: runMigrations,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDatabase connects when Postgres is configured and returns nil
// otherwise; persistence is optional for the pipeline.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.DatabaseConfig.IsConfigured() {
		return nil, nil
	}
	return database.NewConnection(cfg.DatabaseConfig)
}

func runServer(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("FileProcessor starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return err
	}
	if err := srv.Run(); err != nil {
		return err
	}

	log.Println("Shutdown complete")
	return nil
}

func runWorkers(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if count := c.Int("count"); count > 0 {
		cfg.WorkerConfig.Count = count
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	var repos *repository.Repositories
	if db != nil {
		repos = repository.InitRepositories(db)
	}

	attachmentQueue, err := queue.NewRedisQueue(cfg.QueueConfig, appLogger)
	if err != nil {
		return err
	}

	store, err := results.NewStore(cfg.MonitorConfig.AttachmentsDir, appLogger)
	if err != nil {
		return err
	}

	var publisher = events.NewNoopPublisher()
	if cfg.AppConfig.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, appLogger, nil)
		if err != nil {
			return err
		}
		publisher = rabbitPublisher
	}
	defer publisher.Close()

	pool := workers.NewManager(cfg.WorkerConfig, &workers.Dependencies{
		Queue:     attachmentQueue,
		Extractor: extractor.NewExtractorService(appLogger),
		Store:     store,
		Repos:     repos,
		Publisher: publisher,
	}, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return err
	}
	appLogger.Infof("worker pool running with %d workers", cfg.WorkerConfig.Count)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	appLogger.Info("shutting down worker pool")
	pool.Stop(10 * time.Second)
	return nil
}

func runMigrations(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return cli.Exit("migrate requires a configured Postgres database", 1)
	}

	if err := repository.Migrate(db); err != nil {
		return err
	}
	log.Println("Database migration completed successfully")
	return nil
}
