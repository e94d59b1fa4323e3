package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkforge/tattoo-pipeline/internal/api/handler"
	"github.com/inkforge/tattoo-pipeline/internal/telemetry"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	h := handler.NewHandler(deps)

	// Readiness: checks the object store and the queue
	r.GET("/", h.Root)

	// Liveness: answers as long as the process serves HTTP
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "tattoo-pipeline-api",
		})
	})

	// POST /upload/ - Accept both images and queue the compositing task
	r.POST("/upload/", h.Upload)

	files := r.Group("/files")
	{
		// GET /files/ - List stored objects
		files.GET("/", h.ListFiles)

		// GET /files/:folder/:filename - Presigned download URL
		files.GET("/:folder/:filename", h.GetFileURL)

		// DELETE /files/:folder/:filename - Remove an object
		files.DELETE("/:folder/:filename", h.DeleteFile)
	}

	queue := r.Group("/queue")
	{
		// GET /queue/status - Pending message count
		queue.GET("/status", h.QueueStatus)

		// POST /queue/purge - Drop all pending messages (development)
		queue.POST("/purge", h.PurgeQueue)
	}

	// POST /preview/webhook - Development completion receiver
	r.POST("/preview/webhook", h.WebhookPreview)

	// GET /metrics - Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	return r
}
