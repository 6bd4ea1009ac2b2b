package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const recentDefault = 10

// ResultsHandler reads the JSON artifacts and, when a database is
// wired, the persisted rows behind them.
type ResultsHandler struct {
	deps *Dependencies
}

func NewResultsHandler(deps *Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// Recent lists the latest per-message summaries, newest first.
func (h *ResultsHandler) Recent() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := recentDefault
		if raw := c.Query("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
				return
			}
			limit = parsed
		}

		recent, err := h.deps.Store.RecentResults(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": recent, "count": len(recent)})
	}
}

// ByMessageID returns the full summary for one message, plus the
// persisted email and attachment rows when a database is configured.
func (h *ResultsHandler) ByMessageID() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")

		summary, err := h.deps.Store.GetSummaryByMessageID(c.Request.Context(), messageID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		payload := gin.H{"message_id": messageID, "summary": summary}

		if h.deps.Repos != nil {
			email, err := h.deps.Repos.EmailRepository.GetByMessageID(c.Request.Context(), messageID)
			if err == nil && email != nil {
				payload["email"] = email
				if attachments, err := h.deps.Repos.AttachmentRepository.ListByEmail(c.Request.Context(), email.ID); err == nil {
					payload["attachments"] = attachments
				}
			}
		}

		if summary == nil && payload["email"] == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no results for message " + messageID})
			return
		}

		c.JSON(http.StatusOK, payload)
	}
}

// TaskResult returns the worker artifact for one task id.
func (h *ResultsHandler) TaskResult() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("taskId")

		result, err := h.deps.Store.GetWorkerResult(c.Request.Context(), taskID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if result == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no result for task " + taskID})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
