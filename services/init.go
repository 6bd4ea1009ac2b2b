package services

import (
	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/services/events"
	"github.com/Raman369AI/fileProcessor/services/extractor"
	"github.com/Raman369AI/fileProcessor/services/graph"
	"github.com/Raman369AI/fileProcessor/services/monitor"
	"github.com/Raman369AI/fileProcessor/services/queue"
	"github.com/Raman369AI/fileProcessor/services/results"
	"github.com/Raman369AI/fileProcessor/services/storage"
	"github.com/Raman369AI/fileProcessor/services/watcher"
)

type Services struct {
	CursorStore      interfaces.CursorStore
	MailClient       interfaces.MailClient
	Queue            interfaces.AttachmentQueue
	ExtractorService interfaces.ContentExtractor
	ResultsStore     *results.Store
	StorageService   interfaces.StorageService
	EventPublisher   interfaces.EventPublisher
	MonitorService   *monitor.Service
	WatcherService   *watcher.Service
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	cursorStore := graph.NewFileCursorStore(cfg.GraphConfig.CursorFile)
	mailClient := graph.NewClient(cfg.GraphConfig, cursorStore, log)
	extractorService := extractor.NewExtractorService(log)

	resultsStore, err := results.NewStore(cfg.MonitorConfig.AttachmentsDir, log)
	if err != nil {
		return nil, err
	}

	// queue mode only needs Redis; direct mode runs without it
	var attachmentQueue interfaces.AttachmentQueue
	if cfg.MonitorConfig.UseQueue {
		attachmentQueue, err = queue.NewRedisQueue(cfg.QueueConfig, log)
		if err != nil {
			return nil, err
		}
	}

	// optional object storage mirror for saved attachments
	var mirror interfaces.StorageService
	if cfg.StorageConfig.MirrorToObjectStorage {
		mirror, err = storage.NewFromConfig(cfg.StorageConfig)
		if err != nil {
			return nil, err
		}
	}

	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err = events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
	} else {
		publisher = events.NewNoopPublisher()
	}

	monitorService := monitor.NewMonitorService(
		cfg.GraphConfig,
		cfg.MonitorConfig,
		mailClient,
		cursorStore,
		attachmentQueue,
		extractorService,
		resultsStore,
		repos,
		publisher,
		mirror,
		log,
	)

	var watcherService *watcher.Service
	if cfg.MonitorConfig.UploadDir != "" && attachmentQueue != nil {
		watcherService = watcher.NewWatcher(cfg.MonitorConfig.UploadDir, attachmentQueue, log)
	}

	return &Services{
		CursorStore:      cursorStore,
		MailClient:       mailClient,
		Queue:            attachmentQueue,
		ExtractorService: extractorService,
		ResultsStore:     resultsStore,
		StorageService:   mirror,
		EventPublisher:   publisher,
		MonitorService:   monitorService,
		WatcherService:   watcherService,
	}, nil
}
