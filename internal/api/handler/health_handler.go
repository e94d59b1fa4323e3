package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root handles GET /
// A readiness report covering both backing services: the object store must
// answer a bucket head and the queue must be inspectable.
func (h *Handler) Root(c *gin.Context) {
	status := http.StatusOK
	storage := gin.H{"status": "healthy", "bucket": h.store.Bucket()}
	queue := gin.H{"status": "healthy", "queue_name": h.queue.QueueName()}

	if err := h.store.Healthy(c.Request.Context()); err != nil {
		h.logger.Error("Object store unhealthy", slog.String("error", err.Error()))
		storage = gin.H{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	}

	if pending, err := h.queue.PendingMessages(); err != nil {
		h.logger.Error("Queue unhealthy", slog.String("error", err.Error()))
		queue = gin.H{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		queue["pending_messages"] = pending
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"service": "tattoo-pipeline-api",
		"status":  overall,
		"storage": storage,
		"queue":   queue,
	})
}
