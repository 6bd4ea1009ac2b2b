package handlers

import (
	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/repository"
	"github.com/Raman369AI/fileProcessor/services/monitor"
	"github.com/Raman369AI/fileProcessor/services/results"
	"github.com/Raman369AI/fileProcessor/services/workers"
)

type APIHandlers struct {
	Ingest  *IngestHandler
	Queue   *QueueHandler
	Workers *WorkersHandler
	Results *ResultsHandler
}

// Dependencies carries everything the handlers serve. Queue, Pool and
// Repos may be nil depending on the deployment mode; the handlers
// answer accordingly instead of panicking.
type Dependencies struct {
	MonitorConfig *config.MonitorConfig
	Monitor       *monitor.Service
	Queue         interfaces.AttachmentQueue
	Pool          *workers.Manager
	Store         *results.Store
	Repos         *repository.Repositories
	Log           logger.Logger
}

func InitHandlers(deps *Dependencies) *APIHandlers {
	return &APIHandlers{
		Ingest:  NewIngestHandler(deps),
		Queue:   NewQueueHandler(deps),
		Workers: NewWorkersHandler(deps),
		Results: NewResultsHandler(deps),
	}
}
