package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/Raman369AI/fileProcessor/api/handlers"
	"github.com/Raman369AI/fileProcessor/api/middleware"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, deps *handlers.Dependencies, apikey string) {
	if deps == nil || deps.Monitor == nil || deps.Store == nil {
		panic("handler dependencies cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// setup handlers
	apiHandlers := handlers.InitHandlers(deps)

	// Health check and status endpoints, no auth
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", apiHandlers.Ingest.Status())

	// API group with version and tracing
	api := r.Group("/v1")
	if apikey != "" {
		api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
			HeaderName:  "X-FILEPROCESSOR-API-KEY",
			ValidAPIKey: apikey,
		}))
	}
	api.Use(middleware.TracingMiddleware())
	{
		api.POST("/process-now", apiHandlers.Ingest.ProcessNow())

		results := api.Group("/results")
		{
			results.GET("/recent", apiHandlers.Results.Recent())
			results.GET("/task/:taskId", apiHandlers.Results.TaskResult())
			results.GET("/:messageId", apiHandlers.Results.ByMessageID())
		}

		queue := api.Group("/queue")
		{
			queue.GET("/status", apiHandlers.Queue.Status())
			queue.GET("/stats", apiHandlers.Queue.Stats())
			queue.GET("/peek", apiHandlers.Queue.Peek())
			queue.POST("/clear", apiHandlers.Queue.Clear())
			queue.GET("/health", apiHandlers.Queue.Health())
		}

		workers := api.Group("/workers")
		{
			workers.GET("/stats", apiHandlers.Workers.Stats())
			workers.GET("/health", apiHandlers.Workers.Health())
			workers.POST("/restart", apiHandlers.Workers.Restart())
		}
	}
}
