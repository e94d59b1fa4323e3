package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkforge/tattoo-pipeline/internal/api/dto"
	"github.com/inkforge/tattoo-pipeline/internal/task"
	"github.com/inkforge/tattoo-pipeline/internal/telemetry"
)

// Upload handles POST /upload/
// Accepts a body photo and a tattoo design, stores both, and queues the
// compositing task. The response carries everything the caller needs to
// poll for the result.
func (h *Handler) Upload(c *gin.Context) {
	ctx := c.Request.Context()

	bodyInfo, bodyContent, ok := h.readImageUpload(c, "body_image")
	if !ok {
		return
	}
	tattooInfo, tattooContent, ok := h.readImageUpload(c, "tattoo_image")
	if !ok {
		return
	}

	styles, ok := h.parseListParam(c, "styles")
	if !ok {
		return
	}
	colors, ok := h.parseListParam(c, "colors")
	if !ok {
		return
	}
	description := c.PostForm("description")
	socketID := c.PostForm("socket_id")

	bodyInfo.Filename = task.NewBodyFilename()
	tattooInfo.Filename = task.NewTattooFilename()
	jobID := uuid.New().String()

	log := h.logger.With(
		slog.String("job_id", jobID),
		slog.String("body_filename", bodyInfo.Filename),
		slog.String("tattoo_filename", tattooInfo.Filename),
	)

	if err := h.store.Upload(ctx, h.inputFolder, bodyInfo.Filename, bodyContent, bodyInfo.ContentType); err != nil {
		log.Error("Failed to store body image", slog.String("error", err.Error()))
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store body_image",
		})
		return
	}

	if err := h.store.Upload(ctx, h.inputFolder, tattooInfo.Filename, tattooContent, tattooInfo.ContentType); err != nil {
		log.Error("Failed to store tattoo image", slog.String("error", err.Error()))
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store tattoo_image",
		})
		return
	}

	job := task.Job{
		TaskType:       task.TypeTattooApplication,
		BodyFilename:   bodyInfo.Filename,
		TattooFilename: tattooInfo.Filename,
		InputFolder:    h.inputFolder,
		OutputFolder:   h.outputFolder,
		Styles:         styles,
		Colors:         colors,
		Description:    description,
		Metadata: task.Metadata{
			JobID:       jobID,
			SocketID:    socketID,
			BodyImage:   &bodyInfo,
			TattooImage: &tattooInfo,
		},
	}

	payload, err := json.Marshal(&job)
	if err != nil {
		log.Error("Failed to encode task", slog.String("error", err.Error()))
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to encode task",
		})
		return
	}

	// Inputs are durably stored before the task is published, so the
	// worker can treat a missing input as permanent.
	if err := h.queue.PublishWithRetry(ctx, payload, "application/json"); err != nil {
		log.Error("Failed to queue task", slog.String("error", err.Error()))
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to queue processing task",
		})
		return
	}

	log.Info("Upload accepted and task queued",
		slog.String("body_resolution", bodyInfo.Resolution),
		slog.String("tattoo_resolution", tattooInfo.Resolution),
		slog.Int("styles", len(styles)),
		slog.Int("colors", len(colors)),
	)
	telemetry.UploadsAccepted.Inc()

	c.JSON(http.StatusOK, dto.UploadResponse{
		Status:      "success",
		Message:     "Images received and task queued for AI processing",
		JobID:       jobID,
		BodyImage:   bodyInfo,
		TattooImage: tattooInfo,
		Storage: dto.StorageInfo{
			Bucket:       h.store.Bucket(),
			InputFolder:  h.inputFolder,
			OutputFolder: h.outputFolder,
		},
		Queue: dto.QueueInfo{
			TaskQueued:     true,
			QueueName:      h.queue.QueueName(),
			ExpectedOutput: task.ResultFilename(bodyInfo.Filename),
		},
	})
}

// readImageUpload pulls one multipart file, checks its declared content
// type, buffers it fully, and extracts image metadata. It writes the error
// response itself; callers only check ok.
func (h *Handler) readImageUpload(c *gin.Context, field string) (task.ImageInfo, []byte, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		h.logger.Error("Missing upload field",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%s is required", field),
		})
		return task.ImageInfo{}, nil, false
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.logger.Error("Rejected non-image upload",
			slog.String("field", field),
			slog.String("content_type", contentType),
		)
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid file type for %s: %s. Only images are accepted.", field, contentType),
		})
		return task.ImageInfo{}, nil, false
	}

	content, err := readAll(fileHeader)
	if err != nil {
		h.logger.Error("Failed to read upload",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Failed to read %s", field),
		})
		return task.ImageInfo{}, nil, false
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		h.logger.Error("Rejected upload that does not decode as an image",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%s is not a decodable image", field),
		})
		return task.ImageInfo{}, nil, false
	}

	return task.ImageInfo{
		Resolution:  fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		Format:      format,
		SizeBytes:   len(content),
		ContentType: contentType,
	}, content, true
}

// parseListParam reads an optional form field holding a JSON string array,
// e.g. styles=["minimalist","blackwork"].
func (h *Handler) parseListParam(c *gin.Context, field string) ([]string, bool) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, true
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		h.logger.Error("Rejected malformed list parameter",
			slog.String("field", field),
			slog.String("value", raw),
			slog.String("error", err.Error()),
		)
		telemetry.UploadsRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("%s must be a JSON array of strings", field),
		})
		return nil, false
	}
	return values, true
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
