package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const restartGrace = 10 * time.Second

// WorkersHandler exposes the worker pool's control endpoints.
type WorkersHandler struct {
	deps *Dependencies
}

func NewWorkersHandler(deps *Dependencies) *WorkersHandler {
	return &WorkersHandler{deps: deps}
}

func (h *WorkersHandler) available(c *gin.Context) bool {
	if h.deps.Pool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "worker pool is not running"})
		return false
	}
	return true
}

func (h *WorkersHandler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		c.JSON(http.StatusOK, h.deps.Pool.Stats())
	}
}

func (h *WorkersHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		healthy := h.deps.Pool.Healthy()
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"healthy": healthy, "pool": h.deps.Pool.Stats()})
	}
}

// Restart replaces the whole pool with a fresh generation of workers.
func (h *WorkersHandler) Restart() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}

		h.deps.Log.Warn("worker pool restart requested via API")
		if err := h.deps.Pool.Restart(context.Background(), restartGrace); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "restarted"})
	}
}
