package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkforge/tattoo-pipeline/internal/api/dto"
	"github.com/inkforge/tattoo-pipeline/internal/telemetry"
)

// QueueStatus handles GET /queue/status
func (h *Handler) QueueStatus(c *gin.Context) {
	pending, err := h.queue.PendingMessages()
	if err != nil {
		h.logger.Error("Failed to inspect queue", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to inspect queue",
		})
		return
	}

	telemetry.QueueDepth.Set(float64(pending))

	c.JSON(http.StatusOK, dto.QueueStatusResponse{
		QueueName: h.queue.QueueName(),
		Pending:   pending,
		Connected: h.queue.IsConnected(),
	})
}

// PurgeQueue handles POST /queue/purge
// Discards every pending message. Destructive; intended for development.
func (h *Handler) PurgeQueue(c *gin.Context) {
	purged, err := h.queue.Purge()
	if err != nil {
		h.logger.Error("Failed to purge queue", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to purge queue",
		})
		return
	}

	h.logger.Warn("Queue purged",
		slog.String("queue", h.queue.QueueName()),
		slog.Int("purged", purged),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":     "purged",
		"queue_name": h.queue.QueueName(),
		"purged":     purged,
	})
}
