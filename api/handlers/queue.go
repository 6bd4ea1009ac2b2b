package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	peekDefault = 5
	peekMax     = 50
)

// QueueHandler exposes the attachment queue's control endpoints. Every
// handler answers 503 when the deployment runs without a queue.
type QueueHandler struct {
	deps *Dependencies
}

func NewQueueHandler(deps *Dependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

func (h *QueueHandler) available(c *gin.Context) bool {
	if h.deps.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
		return false
	}
	return true
}

func (h *QueueHandler) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		length, err := h.deps.Queue.Length(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"length": length})
	}
}

func (h *QueueHandler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		stats, err := h.deps.Queue.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// Peek returns up to `count` oldest entries without consuming them.
func (h *QueueHandler) Peek() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}

		count := peekDefault
		if raw := c.Query("count"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > peekMax {
				c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 50"})
				return
			}
			count = parsed
		}

		items, err := h.deps.Queue.Peek(c.Request.Context(), count)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}

func (h *QueueHandler) Clear() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		removed, err := h.deps.Queue.Clear(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		h.deps.Log.Warnf("queue cleared via API, %d items dropped", removed)
		c.JSON(http.StatusOK, gin.H{"cleared": removed})
	}
}

func (h *QueueHandler) Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.available(c) {
			return
		}
		health := h.deps.Queue.HealthCheck(c.Request.Context())
		status := http.StatusOK
		if !health.Connected || !health.Accessible {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	}
}
