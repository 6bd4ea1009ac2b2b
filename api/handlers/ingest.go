package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
)

// IngestHandler serves the monitor status and the manual trigger.
type IngestHandler struct {
	deps *Dependencies
}

func NewIngestHandler(deps *Dependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// Status reports monitor counters, the active mode and, in queue mode,
// the current queue backlog.
func (h *IngestHandler) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := "direct"
		if h.deps.Monitor.QueueMode() {
			mode = "queue"
		}

		payload := gin.H{
			"service":           "fileprocessor",
			"ingestion_enabled": h.deps.Monitor.Enabled(),
			"mode":              mode,
			"monitored_types":   h.deps.MonitorConfig.FileTypes,
			"attachments_dir":   h.deps.MonitorConfig.AttachmentsDir,
			"stats":             h.deps.Monitor.Stats(),
		}

		if h.deps.Queue != nil {
			if length, err := h.deps.Queue.Length(c.Request.Context()); err == nil {
				payload["queue_length"] = length
			}
		}
		if h.deps.Pool != nil {
			payload["workers"] = h.deps.Pool.Stats()
		}

		c.JSON(http.StatusOK, payload)
	}
}

// ProcessNow triggers an ingestion cycle outside the schedule. The
// cycle keeps running after the response; 202 only acknowledges the
// start. A cycle already in flight answers 409.
func (h *IngestHandler) ProcessNow() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.deps.Monitor.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": fileprocessor_errors.ErrIngestionDisabled.Error(),
			})
			return
		}

		// the cycle must outlive the request context
		result := make(chan error, 1)
		go func() {
			result <- h.deps.Monitor.ProcessCycle(context.Background())
		}()

		// a rejected or trivially fast cycle reports synchronously
		select {
		case err := <-result:
			switch err {
			case nil:
				c.JSON(http.StatusAccepted, gin.H{"status": "completed"})
			case fileprocessor_errors.ErrCycleInProgress:
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		case <-time.After(200 * time.Millisecond):
			c.JSON(http.StatusAccepted, gin.H{"status": "processing started"})
		}
	}
}
