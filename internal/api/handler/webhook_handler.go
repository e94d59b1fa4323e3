package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkforge/tattoo-pipeline/internal/api/dto"
)

// WebhookPreview handles POST /preview/webhook
// A development receiver for worker completion callbacks: it logs the
// payload and acknowledges, standing in for the real frontend backend.
func (h *Handler) WebhookPreview(c *gin.Context) {
	var req dto.WebhookPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid webhook payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid webhook payload",
		})
		return
	}

	h.logger.Info("Completion webhook received",
		slog.String("job_id", req.JobID),
		slog.String("socket_id", req.SocketID),
		slog.String("status", req.Data.Status),
		slog.String("result_url", req.Data.ResultURL),
		slog.Float64("processing_time", req.Data.ProcessingTime),
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "received",
		"jobId":  req.JobID,
	})
}
